package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"newsrelay/config"
	"newsrelay/types"
)

var allowedSources = config.AllowedSourceWebsites

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "url", "title_translated", "content_translated",
	"title_modified", "content_modified", "images", `"sourceWebsite"`,
}

const settingsTable = "app_settings"

// settingsSchema creates the token bookkeeping table on first start.
const settingsSchema = `CREATE TABLE IF NOT EXISTS app_settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres is the article repository and settings store backed by Postgres.
type Postgres struct {
	db    *sql.DB
	table string
}

var (
	_ ArticleStore  = (*Postgres)(nil)
	_ ArticleLister = (*Postgres)(nil)
	_ SettingsStore = (*Postgres)(nil)
)

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s: %w", settingsTable, err)
	}
	return NewPostgres(db, table), nil
}

// NewPostgres wraps an existing sql.DB.
func NewPostgres(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = config.DefaultArticleTable
	}
	return &Postgres{db: db, table: table}
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// GetByID loads one article; a missing row yields (nil, nil).
func (p *Postgres) GetByID(ctx context.Context, id int64) (*types.Article, error) {
	query, args, err := getByIDQuery(p.table, id)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	a, err := scanArticle(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	return a, nil
}

// UpdateByURL writes the rewritten fields to every row with the url and
// returns how many rows matched.
func (p *Postgres) UpdateByURL(ctx context.Context, url string, update ArticleUpdate) (int64, error) {
	query, args, err := updateByURLQuery(p.table, url, update)
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update article %s: %w", url, err)
	}
	return res.RowsAffected()
}

// ListPublishable returns allow-listed articles that carry at least one image.
func (p *Postgres) ListPublishable(ctx context.Context) ([]*types.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From(p.table).
		Where(`"sourceWebsite" = ANY(?)`, pq.Array(allowedSources)).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []*types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if !HasImages(a.Images) {
			continue
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// GetSetting reads a value from the settings table.
func (p *Postgres) GetSetting(ctx context.Context, key string) (string, bool, error) {
	query, args, err := psql.Select("value").From(settingsTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var value string
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a value into the settings table.
func (p *Postgres) SetSetting(ctx context.Context, key, value string) error {
	query, args, err := setSettingQuery(key, value)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func getByIDQuery(table string, id int64) (string, []interface{}, error) {
	return psql.Select(articleColumns...).From(table).Where(sq.Eq{"id": id}).Limit(1).ToSql()
}

func setSettingQuery(key, value string) (string, []interface{}, error) {
	return psql.Insert(settingsTable).
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ToSql()
}

func updateByURLQuery(table, url string, update ArticleUpdate) (string, []interface{}, error) {
	return psql.Update(table).
		Set("title_modified", update.TitleModified).
		Set("content_modified", update.ContentModified).
		Where(sq.Eq{"url": url}).
		ToSql()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	var url, title, content, source sql.NullString
	var titleModified, contentModified sql.NullString
	var images []byte
	if err := row.Scan(&a.ID, &url, &title, &content, &titleModified, &contentModified, &images, &source); err != nil {
		return nil, err
	}

	a.URL = url.String
	a.TitleTranslated = title.String
	a.ContentTranslated = content.String
	a.SourceWebsite = source.String
	if titleModified.Valid {
		a.TitleModified = &titleModified.String
	}
	if contentModified.Valid {
		a.ContentModified = &contentModified.String
	}
	if images != nil {
		a.Images = NormalizeImages(images)
	}
	return &a, nil
}
