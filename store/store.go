package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsrelay/types"
)

// ArticleUpdate carries the rewritten fields persisted by the rewrite path.
type ArticleUpdate struct {
	TitleModified   string
	ContentModified string
}

// ArticleStore is the read/update surface the orchestrators need.
// GetByID returns (nil, nil) when no article has the id.
type ArticleStore interface {
	GetByID(ctx context.Context, id int64) (*types.Article, error)
	UpdateByURL(ctx context.Context, url string, update ArticleUpdate) (int64, error)
}

// ArticleLister backs the news listing endpoints.
type ArticleLister interface {
	ListPublishable(ctx context.Context) ([]*types.Article, error)
	Ping(ctx context.Context) error
}

// SettingsStore is a small key-value store for token metadata.
// GetSetting reports ok=false when the key has never been written.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// NormalizeImages converts a stored images value (JSON text, raw jsonb bytes or
// a decoded structure) to its JSON string form. Empty values become "".
func NormalizeImages(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case json.RawMessage:
		return strings.TrimSpace(string(val))
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// HasImages reports whether a normalized images value holds at least one entry.
func HasImages(images string) bool {
	switch strings.TrimSpace(images) {
	case "", "null", "[]", "{}", `""`:
		return false
	}
	return true
}

func isAllowedSource(source string) bool {
	for _, s := range allowedSources {
		if s == source {
			return true
		}
	}
	return false
}
