// Package publisher holds one strategy per target platform. Every failure is
// returned as a *types.PublishError; nothing is retried.
package publisher

import (
	"context"
	"net/http"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// PostRef identifies the created post. URL may be empty when the platform
// does not expose one.
type PostRef struct {
	ID  string
	URL string
}

// Publisher performs the platform call sequence for one payload.
type Publisher interface {
	Platform() types.Platform
	Publish(ctx context.Context, payload transform.Payload, token string) (PostRef, error)
}

// NewAll builds a publisher for every platform in cfg. Unconfigured platforms
// are filtered by the credential registry, not here.
func NewAll(cfg config.Platforms) map[types.Platform]Publisher {
	client := &http.Client{Timeout: config.MediaTimeout}
	return map[types.Platform]Publisher{
		types.PlatformCMS:       NewCMS(cfg.CMS, client),
		types.PlatformFacebook:  NewFacebook(cfg.Facebook, client),
		types.PlatformInstagram: NewInstagram(cfg.Instagram, client),
		types.PlatformThreads:   NewThreads(cfg.Threads, client),
		types.PlatformPixnet:    NewPixnet(cfg.Pixnet, client),
	}
}
