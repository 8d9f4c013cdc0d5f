package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsrelay/config"
	"newsrelay/types"
)

// InstagramRefresher exchanges a long-lived Instagram token through the Graph
// API fb_exchange_token grant.
type InstagramRefresher struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
}

// NewInstagramRefresher returns nil when the app id or secret is missing, since
// the exchange cannot be made without them.
func NewInstagramRefresher(cfg config.InstagramConfig, httpClient *http.Client) *InstagramRefresher {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.MetadataTimeout}
	}
	return &InstagramRefresher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		httpClient: httpClient,
	}
}

func (r *InstagramRefresher) Refresh(ctx context.Context, current string) (string, time.Duration, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", r.appID)
	q.Set("client_secret", r.appSecret)
	q.Set("fb_exchange_token", current)
	return fetchToken(ctx, r.httpClient, types.PlatformInstagram, r.baseURL+"/oauth/access_token?"+q.Encode())
}

// ThreadsRefresher renews a long-lived Threads token.
type ThreadsRefresher struct {
	baseURL    string
	httpClient *http.Client
}

func NewThreadsRefresher(cfg config.ThreadsConfig, httpClient *http.Client) *ThreadsRefresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.MetadataTimeout}
	}
	return &ThreadsRefresher{baseURL: strings.TrimRight(cfg.BaseURL, "/"), httpClient: httpClient}
}

func (r *ThreadsRefresher) Refresh(ctx context.Context, current string) (string, time.Duration, error) {
	q := url.Values{}
	q.Set("grant_type", "th_refresh_token")
	q.Set("access_token", current)
	return fetchToken(ctx, r.httpClient, types.PlatformThreads, r.baseURL+"/refresh_access_token?"+q.Encode())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func fetchToken(ctx context.Context, client *http.Client, platform types.Platform, endpoint string) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, config.MetadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, types.Errorf(types.ErrTransport, "%s token refresh: %v", platform, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", 0, types.ProviderError(platform, resp.StatusCode, body)
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", 0, types.Errorf(types.ErrProvider, "%s token refresh: unreadable response: %v", platform, err)
	}
	if out.AccessToken == "" {
		return "", 0, types.Errorf(types.ErrProvider, "%s token refresh returned no access_token", platform)
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}
