package publisher

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// Threads mirrors the Instagram container flow with the token sent as a form
// field and no settle delay.
type Threads struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

func NewThreads(cfg config.ThreadsConfig, httpClient *http.Client) *Threads {
	return &Threads{baseURL: strings.TrimRight(cfg.BaseURL, "/"), userID: cfg.UserID, httpClient: httpClient}
}

func (t *Threads) Platform() types.Platform { return types.PlatformThreads }

func (t *Threads) Publish(ctx context.Context, payload transform.Payload, token string) (PostRef, error) {
	base := t.baseURL + "/" + url.PathEscape(t.userID)

	containerID, err := t.call(ctx, base+"/threads", url.Values{
		"media_type":   {"IMAGE"},
		"image_url":    {payload.ImageURL},
		"text":         {payload.Body},
		"access_token": {token},
	})
	if err != nil {
		return PostRef{}, err
	}

	postID, err := t.call(ctx, base+"/threads_publish", url.Values{
		"creation_id":  {containerID},
		"access_token": {token},
	})
	if err != nil {
		return PostRef{}, err
	}
	return PostRef{ID: postID, URL: t.permalink(ctx, postID, token)}, nil
}

func (t *Threads) call(ctx context.Context, endpoint string, form url.Values) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	var out graphID
	if err := doFormRequest(ctx, t.httpClient, types.PlatformThreads, endpoint, form, &out, nil); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", types.NewError(types.ErrProvider, "threads response has no id")
	}
	return out.ID, nil
}

// permalink looks up the public link of a published post. Any failure yields "".
func (t *Threads) permalink(ctx context.Context, postID, token string) string {
	ctx, cancel := context.WithTimeout(ctx, config.MetadataTimeout)
	defer cancel()

	q := url.Values{"fields": {"permalink"}, "access_token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/"+url.PathEscape(postID)+"?"+q.Encode(), nil)
	if err != nil {
		return ""
	}
	resp, err := do(t.httpClient, types.PlatformThreads, req)
	if err != nil {
		log.Printf("⚠️  Threads permalink lookup failed: %v", err)
		return ""
	}
	var out struct {
		Permalink string `json:"permalink"`
	}
	if err := resp.decode(types.PlatformThreads, &out); err != nil {
		log.Printf("⚠️  Threads permalink lookup failed: %v", err)
		return ""
	}
	return out.Permalink
}
