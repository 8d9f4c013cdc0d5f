package credentials

import (
	"context"
	"log"
	"net/http"

	"newsrelay/config"
	"newsrelay/store"
	"newsrelay/types"
)

// Registry answers which platforms can be published to and supplies their
// tokens. The configured set is fixed at construction.
type Registry struct {
	platforms  config.Platforms
	configured map[types.Platform]bool
	tokens     *TokenStore
}

// NewRegistry checks the platform secrets once and registers the refreshable
// tokens. settings may be nil.
func NewRegistry(cfg config.Platforms, settings store.SettingsStore) *Registry {
	r := &Registry{
		platforms:  cfg,
		configured: checkConfigured(cfg),
		tokens:     NewTokenStore(settings),
	}

	httpClient := &http.Client{Timeout: config.MetadataTimeout}
	if r.configured[types.PlatformInstagram] {
		var refresher Refresher
		if ig := NewInstagramRefresher(cfg.Instagram, httpClient); ig != nil {
			refresher = ig
		} else {
			log.Printf("⚠️  Instagram app id/secret not set; token will not be refreshed")
		}
		r.tokens.Register(types.PlatformInstagram, cfg.Instagram.AccessToken, refresher)
	}
	if r.configured[types.PlatformThreads] {
		r.tokens.Register(types.PlatformThreads, cfg.Threads.AccessToken, NewThreadsRefresher(cfg.Threads, httpClient))
	}

	for _, p := range types.Platforms {
		if r.configured[p] {
			log.Printf("✅ %s configured", p)
		} else {
			log.Printf("⚠️  %s not configured", p)
		}
	}
	return r
}

func checkConfigured(cfg config.Platforms) map[types.Platform]bool {
	return map[types.Platform]bool{
		types.PlatformCMS:       allSet(cfg.CMS.BaseURL, cfg.CMS.Username, cfg.CMS.AppPassword),
		types.PlatformFacebook:  allSet(cfg.Facebook.PageAccessToken),
		types.PlatformInstagram: allSet(cfg.Instagram.UserID, cfg.Instagram.AccessToken),
		types.PlatformThreads:   allSet(cfg.Threads.UserID, cfg.Threads.AccessToken, cfg.Threads.AppSecret),
		types.PlatformPixnet:    allSet(cfg.Pixnet.ClientKey, cfg.Pixnet.ClientSecret, cfg.Pixnet.AccessToken, cfg.Pixnet.AccessTokenSecret),
	}
}

func allSet(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// IsConfigured reports whether every required secret of the platform is set.
func (r *Registry) IsConfigured(platform types.Platform) bool {
	return r.configured[platform]
}

// Configured returns a copy of the configured flags, keyed by platform.
func (r *Registry) Configured() map[types.Platform]bool {
	out := make(map[types.Platform]bool, len(r.configured))
	for p, ok := range r.configured {
		out[p] = ok
	}
	return out
}

// Tokens exposes the token store for restore and scheduled refresh.
func (r *Registry) Tokens() *TokenStore {
	return r.tokens
}

// Token returns the credential a publisher needs. The CMS uses basic auth and
// gets an empty token; PIXNET signs with its own key material.
func (r *Registry) Token(ctx context.Context, platform types.Platform) (string, error) {
	if !r.configured[platform] {
		return "", types.Errorf(types.ErrConfiguration, "%s is not configured", platform)
	}
	switch platform {
	case types.PlatformFacebook:
		return r.platforms.Facebook.PageAccessToken, nil
	case types.PlatformPixnet:
		return r.platforms.Pixnet.AccessToken, nil
	case types.PlatformInstagram, types.PlatformThreads:
		return r.tokens.GetFreshToken(ctx, platform)
	default:
		return "", nil
	}
}
