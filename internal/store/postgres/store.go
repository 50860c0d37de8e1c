// Package postgres provides a Postgres-backed site.Store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id            TEXT PRIMARY KEY,
	root_url      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	cadence       TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	next_crawl_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS crawl_results (
	id          TEXT PRIMARY KEY,
	site_id     TEXT NOT NULL REFERENCES sites(id),
	finished_at TIMESTAMPTZ NOT NULL,
	page_count  INTEGER NOT NULL,
	pages       JSONB NOT NULL,
	skipped     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS generated_documents (
	id              TEXT PRIMARY KEY,
	site_id         TEXT NOT NULL REFERENCES sites(id),
	crawl_result_id TEXT NOT NULL REFERENCES crawl_results(id),
	content         TEXT NOT NULL,
	checksum        TEXT NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sites_next_crawl ON sites(next_crawl_at);
CREATE INDEX IF NOT EXISTS idx_documents_site ON generated_documents(site_id, generated_at);
CREATE INDEX IF NOT EXISTS idx_crawls_site ON crawl_results(site_id, finished_at);
`

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Store persists sites and crawl artifacts in Postgres.
type Store struct {
	pool pgxPool
}

// New connects to Postgres using the provided config and applies the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
// It does not apply the schema.
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) CreateSite(ctx context.Context, st site.Site) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sites (id, root_url, name, cadence, created_at, updated_at, next_crawl_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.ID, st.RootURL, st.Name, string(st.Cadence), st.CreatedAt, st.UpdatedAt, st.NextCrawlAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return site.ErrConflict
		}
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

func (s *Store) GetSite(ctx context.Context, id string) (site.SiteSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.root_url, s.name, s.cadence, s.created_at, s.updated_at, s.next_crawl_at,
		       (SELECT MAX(finished_at) FROM crawl_results WHERE site_id = s.id),
		       (SELECT MAX(generated_at) FROM generated_documents WHERE site_id = s.id)
		FROM sites s WHERE s.id = $1`, id)
	return scanSummary(row)
}

func (s *Store) GetSiteByURL(ctx context.Context, rootURL string) (site.Site, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, root_url, name, cadence, created_at, updated_at, next_crawl_at
		FROM sites WHERE root_url = $1`, rootURL)
	return scanSite(row)
}

func (s *Store) ListSites(ctx context.Context) ([]site.SiteSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.root_url, s.name, s.cadence, s.created_at, s.updated_at, s.next_crawl_at,
		       (SELECT MAX(finished_at) FROM crawl_results WHERE site_id = s.id),
		       (SELECT MAX(generated_at) FROM generated_documents WHERE site_id = s.id)
		FROM sites s ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var out []site.SiteSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSiteSchedule(ctx context.Context, id string, cadence site.Cadence, nextCrawlAt *time.Time, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sites SET cadence = $1, next_crawl_at = $2, updated_at = $3 WHERE id = $4`,
		string(cadence), nextCrawlAt, now, id)
	if err != nil {
		return fmt.Errorf("update site schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return site.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateNextCrawl(ctx context.Context, id string, nextCrawlAt *time.Time, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sites SET next_crawl_at = $1, updated_at = $2 WHERE id = $3`,
		nextCrawlAt, now, id)
	if err != nil {
		return fmt.Errorf("update next crawl: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return site.ErrNotFound
	}
	return nil
}

// DeleteSite removes the site and its crawl artifacts in one transaction.
func (s *Store) DeleteSite(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM generated_documents WHERE site_id = $1`, id); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM crawl_results WHERE site_id = $1`, id); err != nil {
		return fmt.Errorf("delete crawl results: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return site.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) ListDueSites(ctx context.Context, now time.Time) ([]site.Site, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, root_url, name, cadence, created_at, updated_at, next_crawl_at
		FROM sites
		WHERE next_crawl_at IS NOT NULL AND next_crawl_at <= $1
		ORDER BY next_crawl_at, id`, now)
	if err != nil {
		return nil, fmt.Errorf("list due sites: %w", err)
	}
	defer rows.Close()

	var out []site.Site
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SaveCrawl writes the crawl result and its document in one transaction
// so readers never see one without the other.
func (s *Store) SaveCrawl(ctx context.Context, result site.CrawlResult, doc site.GeneratedDocument) error {
	pages, err := json.Marshal(result.Pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}
	skipped, err := json.Marshal(result.Skipped)
	if err != nil {
		return fmt.Errorf("encode skipped pages: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO crawl_results (id, site_id, finished_at, page_count, pages, skipped)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.ID, result.SiteID, result.FinishedAt, result.PageCount, pages, skipped); err != nil {
		return fmt.Errorf("insert crawl result: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO generated_documents (id, site_id, crawl_result_id, content, checksum, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.SiteID, doc.CrawlResultID, doc.Content, doc.Checksum, doc.GeneratedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sites SET updated_at = $1 WHERE id = $2`, doc.GeneratedAt, doc.SiteID); err != nil {
		return fmt.Errorf("touch site: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) LatestDocument(ctx context.Context, siteID string) (site.GeneratedDocument, error) {
	var doc site.GeneratedDocument
	err := s.pool.QueryRow(ctx, `
		SELECT id, site_id, crawl_result_id, content, checksum, generated_at
		FROM generated_documents
		WHERE site_id = $1
		ORDER BY generated_at DESC, id DESC
		LIMIT 1`, siteID).Scan(
		&doc.ID, &doc.SiteID, &doc.CrawlResultID, &doc.Content, &doc.Checksum, &doc.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return site.GeneratedDocument{}, site.ErrNotFound
	}
	if err != nil {
		return site.GeneratedDocument{}, fmt.Errorf("latest document: %w", err)
	}
	return doc, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanSite(row pgx.Row) (site.Site, error) {
	var (
		st      site.Site
		cadence string
	)
	err := row.Scan(&st.ID, &st.RootURL, &st.Name, &cadence, &st.CreatedAt, &st.UpdatedAt, &st.NextCrawlAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return site.Site{}, site.ErrNotFound
	}
	if err != nil {
		return site.Site{}, fmt.Errorf("scan site: %w", err)
	}
	st.Cadence = site.Cadence(cadence)
	return st, nil
}

func scanSummary(row pgx.Row) (site.SiteSummary, error) {
	var (
		summary site.SiteSummary
		cadence string
	)
	err := row.Scan(&summary.ID, &summary.RootURL, &summary.Name, &cadence,
		&summary.CreatedAt, &summary.UpdatedAt, &summary.NextCrawlAt,
		&summary.LastCrawlAt, &summary.LastGeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return site.SiteSummary{}, site.ErrNotFound
	}
	if err != nil {
		return site.SiteSummary{}, fmt.Errorf("scan site summary: %w", err)
	}
	summary.Cadence = site.Cadence(cadence)
	return summary, nil
}
