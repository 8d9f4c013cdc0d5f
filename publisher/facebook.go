package publisher

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// Facebook posts a photo with a caption to a page.
type Facebook struct {
	baseURL    string
	pageID     string
	httpClient *http.Client
}

func NewFacebook(cfg config.FacebookConfig, httpClient *http.Client) *Facebook {
	pageID := cfg.PageID
	if pageID == "" {
		pageID = "me"
	}
	return &Facebook{baseURL: strings.TrimRight(cfg.BaseURL, "/"), pageID: pageID, httpClient: httpClient}
}

func (f *Facebook) Platform() types.Platform { return types.PlatformFacebook }

type facebookPhoto struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (f *Facebook) Publish(ctx context.Context, payload transform.Payload, token string) (PostRef, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("url", payload.ImageURL)
	q.Set("caption", payload.Body)
	q.Set("access_token", token)
	endpoint := f.baseURL + "/" + url.PathEscape(f.pageID) + "/photos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return PostRef{}, err
	}
	resp, err := do(f.httpClient, types.PlatformFacebook, req)
	if err != nil {
		return PostRef{}, err
	}
	if resp.status != http.StatusOK {
		return PostRef{}, types.ProviderError(types.PlatformFacebook, resp.status, resp.body)
	}

	var photo facebookPhoto
	if err := resp.decode(types.PlatformFacebook, &photo); err != nil {
		return PostRef{}, err
	}
	id := photo.PostID
	if id == "" {
		id = photo.ID
	}
	if id == "" {
		return PostRef{}, types.NewError(types.ErrProvider, "facebook response has no post id")
	}
	return PostRef{ID: id, URL: facebookPostURL(id)}, nil
}

// facebookPostURL turns "<page>_<post>" into the public post link.
func facebookPostURL(id string) string {
	return "https://www.facebook.com/" + strings.Replace(id, "_", "/posts/", 1)
}
