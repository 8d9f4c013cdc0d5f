package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsrelay/config"
	"newsrelay/store"
	"newsrelay/types"
)

const ttl = 5184000 * time.Second

type fakeRefresher struct {
	calls atomic.Int32
	token string
	ttl   time.Duration
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, current string) (string, time.Duration, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", 0, f.err
	}
	return f.token, f.ttl, nil
}

func newTestStore(settings store.SettingsStore, now time.Time, r Refresher) *TokenStore {
	ts := NewTokenStore(settings)
	ts.now = func() time.Time { return now }
	ts.granted = now
	ts.Register(types.PlatformInstagram, "old-token", r)
	return ts
}

func setLastRefresh(ts *TokenStore, p types.Platform, at time.Time) {
	ts.slots[p].state.LastRefresh = at
	ts.slots[p].state.TTL = ttl
}

func TestGetFreshTokenBoundaries(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		lastRefresh time.Time
		wantRefresh bool
	}{
		{"ten seconds ago", now.Add(-10 * time.Second), false},
		{"one second inside the margin", now.Add(-(ttl - 86400*time.Second - time.Second)), true},
		{"past expiry", now.Add(-ttl - time.Hour), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := &fakeRefresher{token: "new-token"}
			ts := newTestStore(nil, now, r)
			setLastRefresh(ts, types.PlatformInstagram, c.lastRefresh)

			token, err := ts.GetFreshToken(context.Background(), types.PlatformInstagram)
			if err != nil {
				t.Fatalf("GetFreshToken: %v", err)
			}
			refreshed := r.calls.Load() == 1
			if refreshed != c.wantRefresh {
				t.Fatalf("refresh called %d times; want refresh=%v", r.calls.Load(), c.wantRefresh)
			}
			want := "old-token"
			if c.wantRefresh {
				want = "new-token"
			}
			if token != want {
				t.Fatalf("token = %q; want %q", token, want)
			}
		})
	}
}

func TestNeverRefreshedUsesGrantTime(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	r := &fakeRefresher{token: "new-token"}
	ts := newTestStore(nil, now, r)

	if _, err := ts.GetFreshToken(context.Background(), types.PlatformInstagram); err != nil {
		t.Fatalf("GetFreshToken: %v", err)
	}
	if r.calls.Load() != 0 {
		t.Fatalf("token within the initial grant was refreshed")
	}

	ts.granted = now.Add(-config.DefaultTokenTTL)
	if _, err := ts.GetFreshToken(context.Background(), types.PlatformInstagram); err != nil {
		t.Fatalf("GetFreshToken: %v", err)
	}
	if r.calls.Load() != 1 {
		t.Fatalf("expired grant was not refreshed")
	}
}

func TestRefreshFailureFallsBackToLastToken(t *testing.T) {
	now := time.Now()
	r := &fakeRefresher{err: errors.New("boom")}
	ts := newTestStore(nil, now, r)
	setLastRefresh(ts, types.PlatformInstagram, now.Add(-ttl))

	token, err := ts.GetFreshToken(context.Background(), types.PlatformInstagram)
	if err != nil || token != "old-token" {
		t.Fatalf("GetFreshToken = %q, %v; want old-token, nil", token, err)
	}
	state, _ := ts.State(types.PlatformInstagram)
	if !state.LastRefresh.Equal(now.Add(-ttl)) {
		t.Fatalf("failed refresh changed last_refresh")
	}
}

func TestRefreshPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	settings := store.NewMemory()

	r := &fakeRefresher{token: "new-token", ttl: 30 * 24 * time.Hour}
	ts := newTestStore(settings, now, r)
	setLastRefresh(ts, types.PlatformInstagram, now.Add(-ttl))

	if _, err := ts.GetFreshToken(ctx, types.PlatformInstagram); err != nil {
		t.Fatalf("GetFreshToken: %v", err)
	}
	if v, ok, _ := settings.GetSetting(ctx, "instagram_last_refresh"); !ok || v != "2026-03-01T00:00:00Z" {
		t.Fatalf("last_refresh setting = %q, %v", v, ok)
	}

	restored := newTestStore(settings, now, nil)
	restored.Restore(ctx)
	state, _ := restored.State(types.PlatformInstagram)
	if state.AccessToken != "new-token" || !state.LastRefresh.Equal(now) || state.TTL != 30*24*time.Hour {
		t.Fatalf("restored state = %+v", state)
	}
}

func TestGetFreshTokenUnregistered(t *testing.T) {
	ts := NewTokenStore(nil)
	_, err := ts.GetFreshToken(context.Background(), types.PlatformThreads)
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInstagramRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/oauth/access_token" || q.Get("grant_type") != "fb_exchange_token" ||
			q.Get("client_id") != "app" || q.Get("client_secret") != "secret" || q.Get("fb_exchange_token") != "old" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"access_token":"fresh","expires_in":3600}`)
	}))
	defer srv.Close()

	r := NewInstagramRefresher(config.InstagramConfig{AppID: "app", AppSecret: "secret", BaseURL: srv.URL}, srv.Client())
	token, ttl, err := r.Refresh(context.Background(), "old")
	if err != nil || token != "fresh" || ttl != time.Hour {
		t.Fatalf("Refresh = %q, %s, %v", token, ttl, err)
	}

	if NewInstagramRefresher(config.InstagramConfig{BaseURL: srv.URL}, nil) != nil {
		t.Fatalf("refresher without app secret should be nil")
	}
}

func TestThreadsRefresherProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "th_refresh_token" {
			t.Errorf("unexpected grant %q", r.URL.Query().Get("grant_type"))
		}
		http.Error(w, `{"error":{"message":"expired"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewThreadsRefresher(config.ThreadsConfig{BaseURL: srv.URL}, srv.Client())
	_, _, err := r.Refresh(context.Background(), "old")
	if !errors.Is(err, types.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestRegistryConfiguredAndToken(t *testing.T) {
	cfg := config.Platforms{
		CMS:       config.CMSConfig{BaseURL: "https://cms", Username: "u"},
		Facebook:  config.FacebookConfig{PageAccessToken: "fb-token"},
		Instagram: config.InstagramConfig{UserID: "1", AccessToken: "ig-token"},
		Threads:   config.ThreadsConfig{UserID: "2", AccessToken: "th-token"},
	}
	r := NewRegistry(cfg, nil)

	want := map[types.Platform]bool{
		types.PlatformCMS:       false,
		types.PlatformFacebook:  true,
		types.PlatformInstagram: true,
		types.PlatformThreads:   false,
		types.PlatformPixnet:    false,
	}
	for p, ok := range want {
		if r.IsConfigured(p) != ok {
			t.Fatalf("IsConfigured(%s) = %v; want %v", p, !ok, ok)
		}
	}

	if tok, err := r.Token(context.Background(), types.PlatformFacebook); err != nil || tok != "fb-token" {
		t.Fatalf("facebook token = %q, %v", tok, err)
	}
	if tok, err := r.Token(context.Background(), types.PlatformInstagram); err != nil || tok != "ig-token" {
		t.Fatalf("instagram token = %q, %v", tok, err)
	}
	if _, err := r.Token(context.Background(), types.PlatformThreads); !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("threads should be unconfigured, got %v", err)
	}
	if got := r.Tokens().Platforms(); len(got) != 1 || got[0] != types.PlatformInstagram {
		t.Fatalf("registered token platforms = %v", got)
	}
}

func TestRefreshSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewRefreshScheduler(NewTokenStore(nil))
	if err := s.Start("not a schedule"); err == nil {
		t.Fatalf("expected error for malformed schedule")
	}
	if err := s.Start(config.DefaultRefreshSchedule); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if s.Entries() != 1 {
		t.Fatalf("Entries = %d; want 1", s.Entries())
	}
}

func TestConcurrentCallersRefreshOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRefresher{token: "new-token", ttl: ttl}
	ts := newTestStore(nil, now, r)
	setLastRefresh(ts, types.PlatformInstagram, now.Add(-ttl))

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = ts.GetFreshToken(context.Background(), types.PlatformInstagram)
		}(i)
	}
	wg.Wait()

	if got := r.calls.Load(); got != 1 {
		t.Fatalf("refresh called %d times; want 1", got)
	}
	for i, tok := range tokens {
		if tok != "new-token" {
			t.Fatalf("caller %d got %q; want new-token", i, tok)
		}
	}
}

func TestRefreshUntrackedRefreshesOnlyUnknownTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRefresher{token: "new-token", ttl: ttl}
	ts := newTestStore(store.NewMemory(), now, r)

	ts.RefreshUntracked(context.Background())
	if r.calls.Load() != 1 {
		t.Fatalf("refresh called %d times; want 1", r.calls.Load())
	}
	state, _ := ts.State(types.PlatformInstagram)
	if state.AccessToken != "new-token" || !state.LastRefresh.Equal(now) {
		t.Fatalf("unexpected state after startup refresh: %+v", state)
	}

	ts.RefreshUntracked(context.Background())
	if r.calls.Load() != 1 {
		t.Fatalf("tracked token refreshed again: %d calls", r.calls.Load())
	}
}
