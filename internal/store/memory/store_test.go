package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

func newSite(id, rootURL string, next *time.Time) site.Site {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return site.Site{
		ID:          id,
		RootURL:     rootURL,
		Cadence:     site.CadenceDaily,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextCrawlAt: next,
	}
}

func TestCreateSiteDuplicateURL(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateSite(ctx, newSite("a", "https://example.com", nil)))
	err := s.CreateSite(ctx, newSite("b", "https://example.com", nil))
	require.ErrorIs(t, err, site.ErrConflict)
}

func TestGetSiteNotFound(t *testing.T) {
	t.Parallel()
	s := New()

	_, err := s.GetSite(context.Background(), "missing")
	require.ErrorIs(t, err, site.ErrNotFound)
}

func TestSaveCrawlAndSummary(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateSite(ctx, newSite("a", "https://example.com", nil)))

	finished := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	generated := finished.Add(time.Second)
	result := site.CrawlResult{ID: "c1", SiteID: "a", FinishedAt: finished, PageCount: 2}
	doc := site.GeneratedDocument{ID: "d1", SiteID: "a", CrawlResultID: "c1", Content: "# Example\n", GeneratedAt: generated}
	require.NoError(t, s.SaveCrawl(ctx, result, doc))

	summary, err := s.GetSite(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, summary.LastCrawlAt)
	require.Equal(t, finished, *summary.LastCrawlAt)
	require.NotNil(t, summary.LastGeneratedAt)
	require.Equal(t, generated, *summary.LastGeneratedAt)

	latest, err := s.LatestDocument(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "d1", latest.ID)
}

func TestLatestDocumentPicksNewest(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateSite(ctx, newSite("a", "https://example.com", nil)))

	t1 := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, s.SaveCrawl(ctx,
		site.CrawlResult{ID: "c1", SiteID: "a", FinishedAt: t1},
		site.GeneratedDocument{ID: "d1", SiteID: "a", CrawlResultID: "c1", GeneratedAt: t1}))
	require.NoError(t, s.SaveCrawl(ctx,
		site.CrawlResult{ID: "c2", SiteID: "a", FinishedAt: t2},
		site.GeneratedDocument{ID: "d2", SiteID: "a", CrawlResultID: "c2", GeneratedAt: t2}))

	latest, err := s.LatestDocument(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "d2", latest.ID)
}

func TestDeleteSiteCascades(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateSite(ctx, newSite("a", "https://example.com", nil)))
	now := time.Now().UTC()
	require.NoError(t, s.SaveCrawl(ctx,
		site.CrawlResult{ID: "c1", SiteID: "a", FinishedAt: now},
		site.GeneratedDocument{ID: "d1", SiteID: "a", CrawlResultID: "c1", GeneratedAt: now}))

	require.NoError(t, s.DeleteSite(ctx, "a"))

	_, err := s.GetSite(ctx, "a")
	require.ErrorIs(t, err, site.ErrNotFound)
	_, err = s.LatestDocument(ctx, "a")
	require.ErrorIs(t, err, site.ErrNotFound)

	// The root URL is free again after deletion.
	require.NoError(t, s.CreateSite(ctx, newSite("b", "https://example.com", nil)))
}

func TestListDueSites(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	older := now.Add(-2 * time.Hour)
	future := now.Add(time.Hour)
	require.NoError(t, s.CreateSite(ctx, newSite("due-recent", "https://a.example", &past)))
	require.NoError(t, s.CreateSite(ctx, newSite("due-old", "https://b.example", &older)))
	require.NoError(t, s.CreateSite(ctx, newSite("future", "https://c.example", &future)))
	require.NoError(t, s.CreateSite(ctx, newSite("never", "https://d.example", nil)))

	due, err := s.ListDueSites(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "due-old", due[0].ID)
	require.Equal(t, "due-recent", due[1].ID)
}

func TestUpdateSiteSchedule(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateSite(ctx, newSite("a", "https://example.com", nil)))

	next := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateSiteSchedule(ctx, "a", site.CadenceHourly, &next, now))

	got, err := s.GetSite(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, site.CadenceHourly, got.Cadence)
	require.NotNil(t, got.NextCrawlAt)
	require.Equal(t, next, *got.NextCrawlAt)
	require.Equal(t, now, got.UpdatedAt)

	require.NoError(t, s.UpdateNextCrawl(ctx, "a", nil, now.Add(time.Minute)))
	got, err = s.GetSite(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, got.NextCrawlAt)

	require.ErrorIs(t, s.UpdateSiteSchedule(ctx, "missing", site.CadenceDaily, nil, now), site.ErrNotFound)
}
