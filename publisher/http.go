package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"newsrelay/types"
)

// apiResponse is a fully read response body.
type apiResponse struct {
	status int
	body   []byte
}

func (r *apiResponse) ok() bool {
	return r.status == http.StatusOK || r.status == http.StatusCreated
}

// do sends req and reads the body. Network failures become transport errors.
func do(client *http.Client, platform types.Platform, req *http.Request) (*apiResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, types.Errorf(types.ErrTransport, "%s request failed: %v", platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Errorf(types.ErrTransport, "%s response read failed: %v", platform, err)
	}
	return &apiResponse{status: resp.StatusCode, body: body}, nil
}

// doJSONRequest posts payload as JSON and decodes a 200/201 response into result.
func doJSONRequest(ctx context.Context, client *http.Client, platform types.Platform, endpoint string, payload, result any, header http.Header) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := do(client, platform, req)
	if err != nil {
		return err
	}
	return resp.decode(platform, result)
}

// doFormRequest posts form fields and decodes a 200/201 response into result.
func doFormRequest(ctx context.Context, client *http.Client, platform types.Platform, endpoint string, form url.Values, result any, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := do(client, platform, req)
	if err != nil {
		return err
	}
	return resp.decode(platform, result)
}

func (r *apiResponse) decode(platform types.Platform, result any) error {
	if !r.ok() {
		return types.ProviderError(platform, r.status, r.body)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(r.body, result); err != nil {
		return types.Errorf(types.ErrProvider, "%s returned an unreadable body: %v", platform, err)
	}
	return nil
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

// rawID reads an id that providers send either as a JSON string or a number.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}
