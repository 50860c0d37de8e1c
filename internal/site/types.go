// Package site defines core types shared across subsystems.
package site

import "time"

// Cadence is the monitoring interval governing automatic re-crawls.
type Cadence string

// Cadence values persisted on the site record.
const (
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
	CadenceNone   Cadence = "none"
)

// ParseCadence validates a user-supplied cadence string.
// An empty string maps to the daily default.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case "":
		return CadenceDaily, nil
	case CadenceHourly, CadenceDaily, CadenceWeekly, CadenceNone:
		return Cadence(s), nil
	default:
		return "", &InputError{Field: "cadence", Reason: "must be one of hourly, daily, weekly, none"}
	}
}

// Site is a monitored root URL.
type Site struct {
	ID          string     `json:"id"`
	RootURL     string     `json:"root_url"`
	Name        string     `json:"name,omitempty"`
	Cadence     Cadence    `json:"cadence"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	NextCrawlAt *time.Time `json:"next_crawl_at,omitempty"`
}

// SiteSummary is a Site plus the derived timestamps of its most recent
// crawl and generated document, as returned by list/detail reads.
type SiteSummary struct {
	Site
	LastCrawlAt     *time.Time `json:"last_crawl_at,omitempty"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
}

// PageInfo is one successfully fetched page inside a crawl snapshot.
type PageInfo struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Links       []string `json:"links,omitempty"`
	Depth       int      `json:"depth"`
}

// SkippedPage records a page that failed to fetch during a crawl.
// Skips never abort the crawl unless they hit the root page.
type SkippedPage struct {
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Reason string `json:"reason"`
}

// CrawlResult is an immutable snapshot of one crawl execution.
// Rows are append-only; a new crawl always produces a new result.
type CrawlResult struct {
	ID         string        `json:"id"`
	SiteID     string        `json:"site_id"`
	FinishedAt time.Time     `json:"finished_at"`
	PageCount  int           `json:"page_count"`
	Pages      []PageInfo    `json:"pages"`
	Skipped    []SkippedPage `json:"skipped,omitempty"`
}

// GeneratedDocument is the llms.txt text derived from exactly one CrawlResult.
type GeneratedDocument struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"site_id"`
	CrawlResultID string    `json:"crawl_result_id"`
	Content       string    `json:"content"`
	Checksum      string    `json:"checksum"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// PageFetch is the result of fetching a single page.
type PageFetch struct {
	URL         string
	StatusCode  int
	Title       string
	Description string
	Links       []string
	Duration    time.Duration
}

// CrawlRequest is a queued request to crawl one site in the background.
type CrawlRequest struct {
	SiteID    string
	Submitted int64
}

// SweepStatus classifies the outcome of one site inside a sweep.
type SweepStatus string

// Sweep outcome values.
const (
	SweepSucceeded SweepStatus = "succeeded"
	SweepFailed    SweepStatus = "failed"
	SweepSkipped   SweepStatus = "skipped"
)

// SweepOutcome is the per-site result of a due-site sweep.
type SweepOutcome struct {
	SiteID  string      `json:"site_id"`
	RootURL string      `json:"root_url"`
	Status  SweepStatus `json:"status"`
	Pages   int         `json:"pages,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SweepReport summarizes one invocation of the due-site sweeper.
type SweepReport struct {
	Outcomes  []SweepOutcome `json:"outcomes"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
}
