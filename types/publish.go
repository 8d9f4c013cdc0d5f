package types

import (
	"fmt"
	"strings"
)

// Platform identifies a publish target.
type Platform string

const (
	PlatformCMS       Platform = "wordpress"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformThreads   Platform = "threads"
	PlatformPixnet    Platform = "pixnet"
)

// Platforms lists every supported target in a stable order.
var Platforms = []Platform{PlatformCMS, PlatformFacebook, PlatformInstagram, PlatformThreads, PlatformPixnet}

// ParsePlatform accepts the platform name case-insensitively; "cms" is an
// alias for the WordPress target.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "cms" {
		return PlatformCMS, nil
	}
	for _, p := range Platforms {
		if string(p) == name {
			return p, nil
		}
	}
	return "", NewError(ErrValidation, fmt.Sprintf("unknown platform %q", s))
}

// RequiresImage reports whether the platform only accepts image posts.
func (p Platform) RequiresImage() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformThreads:
		return true
	}
	return false
}

// Refreshable reports whether the platform's token expires and must be renewed.
func (p Platform) Refreshable() bool {
	return p == PlatformInstagram || p == PlatformThreads
}

// PublishItem is one requested article, optionally with the image the caller picked.
type PublishItem struct {
	NewsID        int64  `json:"news_id"`
	SelectedImage string `json:"selected_image,omitempty"`
}

// PublishRequest is a batch publish request for a single platform.
type PublishRequest struct {
	Platform Platform      `json:"platform"`
	Items    []PublishItem `json:"items"`
	// Status is the PIXNET article status ("publish", "draft", "pending", "hidden").
	Status string `json:"status,omitempty"`
}

// PublishResult records the outcome of one (platform, article) attempt.
type PublishResult struct {
	NewsID  int64   `json:"news_id"`
	NewsURL string  `json:"news_url"`
	PostID  *string `json:"post_id"`
	PostURL *string `json:"post_url"`
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// BatchReport aggregates a batch; Results keep the input order.
type BatchReport struct {
	BatchID  string          `json:"batch_id"`
	Platform Platform        `json:"platform"`
	Total    int             `json:"total"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Results  []PublishResult `json:"results"`
}

// Add appends a result and keeps the counters consistent.
func (r *BatchReport) Add(res PublishResult) {
	r.Results = append(r.Results, res)
	r.Total++
	if res.Success {
		r.Success++
	} else {
		r.Failed++
	}
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
