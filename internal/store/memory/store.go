// Package memory provides an in-memory site.Store for development/testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// Store keeps all entities in maps guarded by a single lock, which also
// makes the SaveCrawl pair write and the cascade delete atomic.
type Store struct {
	mu      sync.RWMutex
	sites   map[string]site.Site
	byURL   map[string]string
	crawls  map[string][]site.CrawlResult
	docs    map[string][]site.GeneratedDocument
}

// New constructs a Store.
func New() *Store {
	return &Store{
		sites:  make(map[string]site.Site),
		byURL:  make(map[string]string),
		crawls: make(map[string][]site.CrawlResult),
		docs:   make(map[string][]site.GeneratedDocument),
	}
}

// CreateSite registers a new site; duplicate root URLs conflict.
func (s *Store) CreateSite(_ context.Context, st site.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[st.RootURL]; exists {
		return site.ErrConflict
	}
	s.sites[st.ID] = st
	s.byURL[st.RootURL] = st.ID
	return nil
}

// GetSite returns the site plus derived last-crawl timestamps.
func (s *Store) GetSite(_ context.Context, id string) (site.SiteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sites[id]
	if !ok {
		return site.SiteSummary{}, site.ErrNotFound
	}
	return s.summarize(st), nil
}

// GetSiteByURL looks a site up by its canonical root URL.
func (s *Store) GetSiteByURL(_ context.Context, rootURL string) (site.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byURL[rootURL]
	if !ok {
		return site.Site{}, site.ErrNotFound
	}
	return s.sites[id], nil
}

// ListSites returns all sites, most recently updated first.
func (s *Store) ListSites(_ context.Context) ([]site.SiteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]site.SiteSummary, 0, len(s.sites))
	for _, st := range s.sites {
		out = append(out, s.summarize(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateSiteSchedule changes cadence and next-due together.
func (s *Store) UpdateSiteSchedule(_ context.Context, id string, cadence site.Cadence, nextCrawlAt *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sites[id]
	if !ok {
		return site.ErrNotFound
	}
	st.Cadence = cadence
	st.NextCrawlAt = copyTime(nextCrawlAt)
	st.UpdatedAt = now
	s.sites[id] = st
	return nil
}

// UpdateNextCrawl advances only the next-due timestamp.
func (s *Store) UpdateNextCrawl(_ context.Context, id string, nextCrawlAt *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sites[id]
	if !ok {
		return site.ErrNotFound
	}
	st.NextCrawlAt = copyTime(nextCrawlAt)
	st.UpdatedAt = now
	s.sites[id] = st
	return nil
}

// DeleteSite removes the site and everything it owns.
func (s *Store) DeleteSite(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sites[id]
	if !ok {
		return site.ErrNotFound
	}
	delete(s.sites, id)
	delete(s.byURL, st.RootURL)
	delete(s.crawls, id)
	delete(s.docs, id)
	return nil
}

// ListDueSites returns sites with a non-null next-due at or before now.
func (s *Store) ListDueSites(_ context.Context, now time.Time) ([]site.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []site.Site
	for _, st := range s.sites {
		if st.NextCrawlAt != nil && !st.NextCrawlAt.After(now) {
			due = append(due, st)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextCrawlAt.Equal(*due[j].NextCrawlAt) {
			return due[i].NextCrawlAt.Before(*due[j].NextCrawlAt)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// SaveCrawl appends the result/document pair under one lock and bumps
// the site's updated timestamp.
func (s *Store) SaveCrawl(_ context.Context, result site.CrawlResult, doc site.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sites[result.SiteID]
	if !ok {
		return site.ErrNotFound
	}
	s.crawls[result.SiteID] = append(s.crawls[result.SiteID], result)
	s.docs[doc.SiteID] = append(s.docs[doc.SiteID], doc)
	st.UpdatedAt = doc.GeneratedAt
	s.sites[st.ID] = st
	return nil
}

// LatestDocument returns the newest generated document for the site.
func (s *Store) LatestDocument(_ context.Context, siteID string) (site.GeneratedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[siteID]
	if len(docs) == 0 {
		return site.GeneratedDocument{}, site.ErrNotFound
	}
	latest := docs[0]
	for _, d := range docs[1:] {
		if !d.GeneratedAt.Before(latest.GeneratedAt) {
			latest = d
		}
	}
	return latest, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Crawls returns the stored crawl results for a site (test inspection).
func (s *Store) Crawls(siteID string) []site.CrawlResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]site.CrawlResult, len(s.crawls[siteID]))
	copy(out, s.crawls[siteID])
	return out
}

func (s *Store) summarize(st site.Site) site.SiteSummary {
	summary := site.SiteSummary{Site: st}
	if crawls := s.crawls[st.ID]; len(crawls) > 0 {
		last := crawls[len(crawls)-1].FinishedAt
		summary.LastCrawlAt = &last
	}
	if docs := s.docs[st.ID]; len(docs) > 0 {
		last := docs[len(docs)-1].GeneratedAt
		summary.LastGeneratedAt = &last
	}
	return summary
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}
