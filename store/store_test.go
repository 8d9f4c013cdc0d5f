package store

import (
	"context"
	"strings"
	"testing"

	"newsrelay/types"
)

func TestNormalizeImages(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"json text", ` ["https://a/1.jpg"] `, `["https://a/1.jpg"]`},
		{"jsonb bytes", []byte(`[{"url":"https://a/1.jpg"}]`), `[{"url":"https://a/1.jpg"}]`},
		{"decoded list", []any{"https://a/1.jpg", "https://a/2.jpg"}, `["https://a/1.jpg","https://a/2.jpg"]`},
		{"decoded object", map[string]any{"url": "https://a/1.jpg"}, `{"url":"https://a/1.jpg"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NormalizeImages(c.in); got != c.want {
				t.Fatalf("NormalizeImages(%v) = %q; want %q", c.in, got, c.want)
			}
		})
	}
}

func TestHasImages(t *testing.T) {
	for _, empty := range []string{"", " ", "null", "[]", "{}"} {
		if HasImages(empty) {
			t.Fatalf("HasImages(%q) = true; want false", empty)
		}
	}
	if !HasImages(`["https://a/1.jpg"]`) {
		t.Fatalf("HasImages should accept a non-empty list")
	}
}

func TestQueriesUseDollarPlaceholders(t *testing.T) {
	query, args, err := getByIDQuery("news", 42)
	if err != nil {
		t.Fatalf("getByIDQuery: %v", err)
	}
	want := `SELECT id, url, title_translated, content_translated, title_modified, content_modified, images, "sourceWebsite" FROM news WHERE id = $1 LIMIT 1`
	if query != want {
		t.Fatalf("getByIDQuery = %q; want %q", query, want)
	}
	if len(args) != 1 || args[0] != int64(42) {
		t.Fatalf("unexpected args %v", args)
	}

	query, args, err = updateByURLQuery("news", "https://x/1", ArticleUpdate{TitleModified: "A", ContentModified: "B"})
	if err != nil {
		t.Fatalf("updateByURLQuery: %v", err)
	}
	want = `UPDATE news SET title_modified = $1, content_modified = $2 WHERE url = $3`
	if query != want {
		t.Fatalf("updateByURLQuery = %q; want %q", query, want)
	}
	if len(args) != 3 || args[2] != "https://x/1" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestSettingsUpsertMatchesSchema(t *testing.T) {
	query, args, err := setSettingQuery("threads_last_refresh", "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("setSettingQuery: %v", err)
	}
	want := `INSERT INTO app_settings (key,value) VALUES ($1,$2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if query != want {
		t.Fatalf("setSettingQuery = %q; want %q", query, want)
	}
	if len(args) != 2 || args[0] != "threads_last_refresh" {
		t.Fatalf("unexpected args %v", args)
	}

	// ON CONFLICT (key) needs a unique key, and the update writes updated_at.
	for _, col := range []string{"key        TEXT PRIMARY KEY", "value      TEXT NOT NULL", "updated_at TIMESTAMPTZ"} {
		if !strings.Contains(settingsSchema, col) {
			t.Fatalf("settings schema is missing %q", col)
		}
	}
}

func TestMemoryUpdateByURLCountsRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(
		&types.Article{ID: 1, URL: "https://x/1", TitleTranslated: "T1"},
		&types.Article{ID: 2, URL: "https://x/2", TitleTranslated: "T2"},
	)

	rows, err := m.UpdateByURL(ctx, "https://x/1", ArticleUpdate{TitleModified: "A", ContentModified: "B"})
	if err != nil || rows != 1 {
		t.Fatalf("UpdateByURL = %d, %v; want 1, nil", rows, err)
	}

	a, _ := m.GetByID(ctx, 1)
	if a.EffectiveTitle() != "A" || a.EffectiveContent() != "B" {
		t.Fatalf("article not updated: %+v", a)
	}

	rows, _ = m.UpdateByURL(ctx, "https://x/missing", ArticleUpdate{TitleModified: "A", ContentModified: "B"})
	if rows != 0 {
		t.Fatalf("UpdateByURL on missing url = %d; want 0", rows)
	}

	if missing, err := m.GetByID(ctx, 99); missing != nil || err != nil {
		t.Fatalf("GetByID(99) = %v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryListPublishableFiltersSourceAndImages(t *testing.T) {
	m := NewMemory(
		&types.Article{ID: 1, SourceWebsite: "https://jen.jiji.com/", Images: `["https://a/1.jpg"]`},
		&types.Article{ID: 2, SourceWebsite: "https://jen.jiji.com/", Images: `[]`},
		&types.Article{ID: 3, SourceWebsite: "https://unknown.example/", Images: `["https://a/3.jpg"]`},
	)

	got, err := m.ListPublishable(context.Background())
	if err != nil {
		t.Fatalf("ListPublishable: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("ListPublishable = %+v; want only article 1", got)
	}
}
