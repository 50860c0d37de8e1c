// Package sqlite provides a site.Store backed by an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id            TEXT PRIMARY KEY,
	root_url      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	cadence       TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	next_crawl_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS crawl_results (
	id          TEXT PRIMARY KEY,
	site_id     TEXT NOT NULL REFERENCES sites(id),
	finished_at TIMESTAMP NOT NULL,
	page_count  INTEGER NOT NULL,
	pages       TEXT NOT NULL,
	skipped     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS generated_documents (
	id              TEXT PRIMARY KEY,
	site_id         TEXT NOT NULL REFERENCES sites(id),
	crawl_result_id TEXT NOT NULL REFERENCES crawl_results(id),
	content         TEXT NOT NULL,
	checksum        TEXT NOT NULL,
	generated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sites_next_crawl ON sites(next_crawl_at);
CREATE INDEX IF NOT EXISTS idx_documents_site ON generated_documents(site_id, generated_at);
CREATE INDEX IF NOT EXISTS idx_crawls_site ON crawl_results(site_id, finished_at);
`

// Store persists sites and crawl artifacts in a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and applies the
// schema. The pool is capped at one connection; SQLite serializes writers
// anyway and a single connection avoids SQLITE_BUSY churn.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateSite(ctx context.Context, st site.Site) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, root_url, name, cadence, created_at, updated_at, next_crawl_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.RootURL, st.Name, string(st.Cadence), st.CreatedAt, st.UpdatedAt, st.NextCrawlAt)
	if err != nil {
		if isUniqueViolation(err) {
			return site.ErrConflict
		}
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

func (s *Store) GetSite(ctx context.Context, id string) (site.SiteSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.root_url, s.name, s.cadence, s.created_at, s.updated_at, s.next_crawl_at,
		       (SELECT MAX(finished_at) FROM crawl_results WHERE site_id = s.id),
		       (SELECT MAX(generated_at) FROM generated_documents WHERE site_id = s.id)
		FROM sites s WHERE s.id = ?`, id)
	return scanSummary(row)
}

func (s *Store) GetSiteByURL(ctx context.Context, rootURL string) (site.Site, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, root_url, name, cadence, created_at, updated_at, next_crawl_at
		FROM sites WHERE root_url = ?`, rootURL)
	return scanSite(row)
}

func (s *Store) ListSites(ctx context.Context) ([]site.SiteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE sites SET cadence = ?, next_crawl_at = ?, updated_at = ? WHERE id = ?`,
		string(cadence), nextCrawlAt, now, id)
	if err != nil {
		return fmt.Errorf("update site schedule: %w", err)
	}
	return requireRow(res)
}

func (s *Store) UpdateNextCrawl(ctx context.Context, id string, nextCrawlAt *time.Time, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sites SET next_crawl_at = ?, updated_at = ? WHERE id = ?`,
		nextCrawlAt, now, id)
	if err != nil {
		return fmt.Errorf("update next crawl: %w", err)
	}
	return requireRow(res)
}

// DeleteSite removes the site and its crawl artifacts in one transaction.
func (s *Store) DeleteSite(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM generated_documents WHERE site_id = ?`, id); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM crawl_results WHERE site_id = ?`, id); err != nil {
		return fmt.Errorf("delete crawl results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListDueSites(ctx context.Context, now time.Time) ([]site.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root_url, name, cadence, created_at, updated_at, next_crawl_at
		FROM sites
		WHERE next_crawl_at IS NOT NULL AND next_crawl_at <= ?
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO crawl_results (id, site_id, finished_at, page_count, pages, skipped)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.SiteID, result.FinishedAt, result.PageCount, string(pages), string(skipped)); err != nil {
		return fmt.Errorf("insert crawl result: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO generated_documents (id, site_id, crawl_result_id, content, checksum, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SiteID, doc.CrawlResultID, doc.Content, doc.Checksum, doc.GeneratedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE sites SET updated_at = ? WHERE id = ?`, doc.GeneratedAt, doc.SiteID); err != nil {
		return fmt.Errorf("touch site: %w", err)
	}
	return tx.Commit()
}

func (s *Store) LatestDocument(ctx context.Context, siteID string) (site.GeneratedDocument, error) {
	var doc site.GeneratedDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, site_id, crawl_result_id, content, checksum, generated_at
		FROM generated_documents
		WHERE site_id = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT 1`, siteID).Scan(
		&doc.ID, &doc.SiteID, &doc.CrawlResultID, &doc.Content, &doc.Checksum, &doc.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return site.GeneratedDocument{}, site.ErrNotFound
	}
	if err != nil {
		return site.GeneratedDocument{}, fmt.Errorf("latest document: %w", err)
	}
	return doc, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (site.Site, error) {
	var (
		st      site.Site
		cadence string
		next    sql.NullTime
	)
	err := row.Scan(&st.ID, &st.RootURL, &st.Name, &cadence, &st.CreatedAt, &st.UpdatedAt, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return site.Site{}, site.ErrNotFound
	}
	if err != nil {
		return site.Site{}, fmt.Errorf("scan site: %w", err)
	}
	st.Cadence = site.Cadence(cadence)
	if next.Valid {
		t := next.Time
		st.NextCrawlAt = &t
	}
	return st, nil
}

func scanSummary(row rowScanner) (site.SiteSummary, error) {
	var (
		summary   site.SiteSummary
		cadence   string
		next      sql.NullTime
		lastCrawl sql.NullString
		lastGen   sql.NullString
	)
	err := row.Scan(&summary.ID, &summary.RootURL, &summary.Name, &cadence,
		&summary.CreatedAt, &summary.UpdatedAt, &next, &lastCrawl, &lastGen)
	if errors.Is(err, sql.ErrNoRows) {
		return site.SiteSummary{}, site.ErrNotFound
	}
	if err != nil {
		return site.SiteSummary{}, fmt.Errorf("scan site summary: %w", err)
	}
	summary.Cadence = site.Cadence(cadence)
	if next.Valid {
		t := next.Time
		summary.NextCrawlAt = &t
	}
	if summary.LastCrawlAt, err = parseStoredTime(lastCrawl); err != nil {
		return site.SiteSummary{}, fmt.Errorf("last crawl timestamp: %w", err)
	}
	if summary.LastGeneratedAt, err = parseStoredTime(lastGen); err != nil {
		return site.SiteSummary{}, fmt.Errorf("last generated timestamp: %w", err)
	}
	return summary, nil
}

// MAX() subqueries carry no column decltype, so the driver returns the
// stored text instead of a time.Time. These are the layouts the driver
// itself writes and accepts for TIMESTAMP columns.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseStoredTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, value.String); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unsupported timestamp %q", value.String)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return site.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
