package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Batch-level: ErrConfiguration, ErrValidation. Everything else is
// recorded against the single item that produced it.
var (
	ErrConfiguration = errors.New("platform not configured")
	ErrValidation    = errors.New("invalid request")
	ErrNotFound      = errors.New("not found")
	ErrContent       = errors.New("invalid content")
	ErrTransport     = errors.New("transport error")
	ErrProvider      = errors.New("provider error")
	ErrParse         = errors.New("parse error")
)

// PublishError carries a kind for errors.Is and a human-readable reason.
type PublishError struct {
	Kind   error
	Reason string
}

func (e *PublishError) Error() string { return e.Reason }

func (e *PublishError) Unwrap() error { return e.Kind }

// NewError builds a PublishError of the given kind.
func NewError(kind error, reason string) *PublishError {
	return &PublishError{Kind: kind, Reason: reason}
}

// Errorf builds a PublishError with a formatted reason.
func Errorf(kind error, format string, args ...any) *PublishError {
	return &PublishError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// ProviderError formats a non-success platform response, keeping the body for diagnosis.
func ProviderError(platform Platform, status int, body []byte) *PublishError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return Errorf(ErrProvider, "%s returned %d: %s", platform, status, string(body))
}

// HTTPStatus maps batch-level errors to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
