package site

import (
	"context"
	"io"
	"time"
)

// Store persists sites, crawl results, and generated documents.
// Implementations must treat CrawlResult and GeneratedDocument rows as
// append-only, write the SaveCrawl pair atomically, and cascade deletes
// from a site to everything it owns.
type Store interface {
	// CreateSite inserts a new site. Returns ErrConflict when the
	// normalized root URL is already registered.
	CreateSite(ctx context.Context, s Site) error
	GetSite(ctx context.Context, id string) (SiteSummary, error)
	GetSiteByURL(ctx context.Context, rootURL string) (Site, error)
	ListSites(ctx context.Context) ([]SiteSummary, error)
	// UpdateSiteSchedule changes the cadence and next-due timestamp.
	UpdateSiteSchedule(ctx context.Context, id string, cadence Cadence, nextCrawlAt *time.Time, now time.Time) error
	// UpdateNextCrawl advances only the next-due timestamp.
	UpdateNextCrawl(ctx context.Context, id string, nextCrawlAt *time.Time, now time.Time) error
	// DeleteSite removes the site and, transactionally, all of its
	// crawl results and generated documents.
	DeleteSite(ctx context.Context, id string) error
	// ListDueSites returns sites whose next-due timestamp is non-null
	// and at or before now, oldest due first.
	ListDueSites(ctx context.Context, now time.Time) ([]Site, error)
	// SaveCrawl writes a crawl result and its generated document in a
	// single transaction and bumps the site's updated timestamp.
	SaveCrawl(ctx context.Context, result CrawlResult, doc GeneratedDocument) error
	// LatestDocument returns the document with the greatest generation
	// timestamp for the site, or ErrNotFound.
	LatestDocument(ctx context.Context, siteID string) (GeneratedDocument, error)
	Close() error
}

// Fetcher retrieves a single page's metadata and same-site links.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (PageFetch, error)
}

// Queue provides enqueue/dequeue semantics for background crawl requests.
type Queue interface {
	Enqueue(ctx context.Context, req CrawlRequest) error
	Dequeue(ctx context.Context) (CrawlRequest, error)
}

// Archive writes document snapshots and returns a URI.
type Archive interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes crawl-completed events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for document integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces entity IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
