package publisher

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// Instagram publishes in two phases: create a media container, wait for the
// platform to ingest the image, then publish the container.
type Instagram struct {
	baseURL    string
	userID     string
	httpClient *http.Client

	// SettleDelay is the wait between container creation and publish.
	SettleDelay time.Duration
}

func NewInstagram(cfg config.InstagramConfig, httpClient *http.Client) *Instagram {
	return &Instagram{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userID:      cfg.UserID,
		httpClient:  httpClient,
		SettleDelay: config.InstagramSettleDelay,
	}
}

func (i *Instagram) Platform() types.Platform { return types.PlatformInstagram }

type graphID struct {
	ID string `json:"id"`
}

func (i *Instagram) Publish(ctx context.Context, payload transform.Payload, token string) (PostRef, error) {
	base := i.baseURL + "/" + url.PathEscape(i.userID)

	containerID, err := i.call(ctx, base+"/media", url.Values{
		"image_url": {payload.ImageURL},
		"caption":   {payload.Body},
	}, token)
	if err != nil {
		return PostRef{}, err
	}
	log.Printf("Instagram container %s created, waiting %s before publish", containerID, i.SettleDelay)

	if err := sleep(ctx, i.SettleDelay); err != nil {
		return PostRef{}, types.Errorf(types.ErrTransport, "instagram publish cancelled: %v", err)
	}

	mediaID, err := i.call(ctx, base+"/media_publish", url.Values{"creation_id": {containerID}}, token)
	if err != nil {
		return PostRef{}, err
	}
	return PostRef{ID: mediaID, URL: "https://www.instagram.com/p/" + mediaID + "/"}, nil
}

func (i *Instagram) call(ctx context.Context, endpoint string, form url.Values, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	var out graphID
	if err := doFormRequest(ctx, i.httpClient, types.PlatformInstagram, endpoint, form, &out, bearer(token)); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", types.NewError(types.ErrProvider, "instagram response has no id")
	}
	return out.ID, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
