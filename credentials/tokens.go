package credentials

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"newsrelay/config"
	"newsrelay/store"
	"newsrelay/types"
)

// clockSkew widens the refresh window so a token is never handed out in the
// last moments before the one-day margin runs out.
const clockSkew = time.Minute

// Refresher exchanges the current long-lived token for a new one. A zero ttl
// means the provider did not say, and the previous ttl is kept.
type Refresher interface {
	Refresh(ctx context.Context, current string) (token string, ttl time.Duration, err error)
}

// TokenState is the cached token of one refreshable platform.
type TokenState struct {
	AccessToken string
	LastRefresh time.Time // zero until the first refresh
	TTL         time.Duration
}

// Fresh reports whether the token can be used without refreshing. A token that
// was never refreshed is measured from the initial grant.
func (s TokenState) Fresh(now, granted time.Time) bool {
	ref := s.LastRefresh
	if ref.IsZero() {
		ref = granted
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return now.Sub(ref) < ttl-config.TokenRefreshMargin-clockSkew
}

type tokenSlot struct {
	mu        sync.Mutex
	state     TokenState
	refresher Refresher
}

// TokenStore owns the token state of every refreshable platform. Each platform
// has its own lock around check, refresh and update.
type TokenStore struct {
	mu       sync.RWMutex
	slots    map[types.Platform]*tokenSlot
	settings store.SettingsStore

	now     func() time.Time
	granted time.Time
}

// NewTokenStore creates an empty store. settings may be nil, in which case
// refreshes are kept in memory only.
func NewTokenStore(settings store.SettingsStore) *TokenStore {
	return &TokenStore{
		slots:    make(map[types.Platform]*tokenSlot),
		settings: settings,
		now:      time.Now,
		granted:  time.Now(),
	}
}

// Register adds a platform with its configured token. refresher may be nil when
// the platform lacks the secrets needed to refresh.
func (s *TokenStore) Register(platform types.Platform, token string, refresher Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[platform] = &tokenSlot{
		state:     TokenState{AccessToken: token, TTL: config.DefaultTokenTTL},
		refresher: refresher,
	}
}

// Platforms returns the registered platforms in a stable order.
func (s *TokenStore) Platforms() []types.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Platform, 0, len(s.slots))
	for p := range s.slots {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State returns a copy of the cached state.
func (s *TokenStore) State(platform types.Platform) (TokenState, bool) {
	slot := s.slot(platform)
	if slot == nil {
		return TokenState{}, false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.state, true
}

// GetFreshToken returns the cached token when fresh and refreshes it otherwise.
// A failed refresh is logged and the last known token is returned.
func (s *TokenStore) GetFreshToken(ctx context.Context, platform types.Platform) (string, error) {
	slot := s.slot(platform)
	if slot == nil {
		return "", types.Errorf(types.ErrConfiguration, "%s token is not registered", platform)
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	now := s.now()
	if slot.state.Fresh(now, s.granted) {
		return slot.state.AccessToken, nil
	}
	return s.refreshLocked(ctx, platform, slot, now), nil
}

// refreshLocked calls the refresher with slot.mu held and returns the token to
// use. On failure the last known token is kept.
func (s *TokenStore) refreshLocked(ctx context.Context, platform types.Platform, slot *tokenSlot, now time.Time) string {
	if slot.refresher == nil {
		log.Printf("⚠️  %s token is due for refresh but refresh credentials are missing; using current token", platform)
		return slot.state.AccessToken
	}

	log.Printf("🔄 Refreshing %s access token", platform)
	token, ttl, err := slot.refresher.Refresh(ctx, slot.state.AccessToken)
	if err != nil {
		log.Printf("❌ %s token refresh failed: %v (using last known token)", platform, err)
		return slot.state.AccessToken
	}

	slot.state.AccessToken = token
	slot.state.LastRefresh = now
	if ttl > 0 {
		slot.state.TTL = ttl
	}
	s.persist(ctx, platform, slot.state)
	log.Printf("✅ %s access token refreshed (valid for %s)", platform, slot.state.TTL)
	return token
}

// RefreshUntracked refreshes every token that has never been refreshed, since
// the issue time of a configured token is unknown. Run it after Restore.
func (s *TokenStore) RefreshUntracked(ctx context.Context) {
	for _, p := range s.Platforms() {
		slot := s.slot(p)
		slot.mu.Lock()
		if slot.state.LastRefresh.IsZero() && slot.refresher != nil {
			s.refreshLocked(ctx, p, slot, s.now())
		}
		slot.mu.Unlock()
	}
}

// RefreshAll runs GetFreshToken for every registered platform.
func (s *TokenStore) RefreshAll(ctx context.Context) {
	for _, p := range s.Platforms() {
		if _, err := s.GetFreshToken(ctx, p); err != nil {
			log.Printf("⚠️  %s token check failed: %v", p, err)
		}
	}
}

// Restore loads tokens persisted by earlier runs. Missing or malformed
// settings leave the configured token in place.
func (s *TokenStore) Restore(ctx context.Context) {
	if s.settings == nil {
		return
	}
	for _, p := range s.Platforms() {
		slot := s.slot(p)

		raw, ok, err := s.settings.GetSetting(ctx, settingKey(p, "last_refresh"))
		if err != nil {
			log.Printf("⚠️  Could not read %s token state: %v", p, err)
			continue
		}
		if !ok {
			continue
		}
		last, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("⚠️  Ignoring malformed %s last_refresh %q", p, raw)
			continue
		}

		slot.mu.Lock()
		slot.state.LastRefresh = last
		if token, ok, err := s.settings.GetSetting(ctx, settingKey(p, "access_token")); err == nil && ok && token != "" {
			slot.state.AccessToken = token
		}
		if v, ok, err := s.settings.GetSetting(ctx, settingKey(p, "ttl_seconds")); err == nil && ok {
			if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
				slot.state.TTL = time.Duration(secs) * time.Second
			}
		}
		slot.mu.Unlock()
		log.Printf("✅ Restored %s token state (last refresh %s)", p, last.Format(time.RFC3339))
	}
}

// persist writes the refreshed state. Failures are logged only.
func (s *TokenStore) persist(ctx context.Context, platform types.Platform, state TokenState) {
	if s.settings == nil {
		return
	}
	values := map[string]string{
		"last_refresh": state.LastRefresh.UTC().Format(time.RFC3339),
		"access_token": state.AccessToken,
		"ttl_seconds":  strconv.FormatInt(int64(state.TTL/time.Second), 10),
	}
	for name, v := range values {
		if err := s.settings.SetSetting(ctx, settingKey(platform, name), v); err != nil {
			log.Printf("⚠️  Could not persist %s %s: %v", platform, name, err)
		}
	}
}

func (s *TokenStore) slot(platform types.Platform) *tokenSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[platform]
}

func settingKey(platform types.Platform, name string) string {
	return string(platform) + "_" + name
}
