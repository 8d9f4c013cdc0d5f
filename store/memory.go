package store

import (
	"context"
	"sort"
	"sync"

	"newsrelay/types"
)

// Memory is an in-process store. It backs tests and local runs without Postgres.
type Memory struct {
	mu       sync.RWMutex
	articles map[int64]*types.Article
	settings map[string]string
}

var (
	_ ArticleStore  = (*Memory)(nil)
	_ ArticleLister = (*Memory)(nil)
	_ SettingsStore = (*Memory)(nil)
)

// NewMemory seeds the store with copies of the given articles.
func NewMemory(articles ...*types.Article) *Memory {
	m := &Memory{
		articles: make(map[int64]*types.Article),
		settings: make(map[string]string),
	}
	for _, a := range articles {
		m.Put(a)
	}
	return m
}

// Put inserts or replaces an article.
func (m *Memory) Put(a *types.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.ID] = cloneArticle(a)
}

func (m *Memory) GetByID(_ context.Context, id int64) (*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, nil
	}
	return cloneArticle(a), nil
}

func (m *Memory) UpdateByURL(_ context.Context, url string, update ArticleUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows int64
	for _, a := range m.articles {
		if a.URL != url {
			continue
		}
		title, content := update.TitleModified, update.ContentModified
		a.TitleModified = &title
		a.ContentModified = &content
		rows++
	}
	return rows, nil
}

func (m *Memory) ListPublishable(_ context.Context) ([]*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Article
	for _, a := range m.articles {
		if isAllowedSource(a.SourceWebsite) && HasImages(a.Images) {
			out = append(out, cloneArticle(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func cloneArticle(a *types.Article) *types.Article {
	c := *a
	if a.TitleModified != nil {
		v := *a.TitleModified
		c.TitleModified = &v
	}
	if a.ContentModified != nil {
		v := *a.ContentModified
		c.ContentModified = &v
	}
	return &c
}
