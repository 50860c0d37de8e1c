// Package orchestrator coordinates the crawl-and-generate pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llmstxt-dev/llmstxt-service/internal/crawl"
	"github.com/llmstxt-dev/llmstxt-service/internal/generate"
	"github.com/llmstxt-dev/llmstxt-service/internal/metrics"
	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// EventDocumentGenerated is the event name published after each
// successful crawl-and-generate run.
const EventDocumentGenerated = "document.generated"

// Config controls orchestrator behavior.
type Config struct {
	// SweepConcurrency bounds how many due sites are crawled at once
	// during a sweep.
	SweepConcurrency int
}

// Crawler walks a site and returns the pages it reached.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) ([]site.PageInfo, []site.SkippedPage, error)
}

// Orchestrator runs the full pipeline for one site: crawl, generate,
// persist, archive, publish, reschedule. At most one crawl per site may
// run at a time.
type Orchestrator struct {
	store     site.Store
	crawler   Crawler
	clock     site.Clock
	ids       site.IDGenerator
	hasher    site.Hasher
	archive   site.Archive
	publisher site.Publisher
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs an Orchestrator. Archive and publisher may be nil; the
// corresponding steps are skipped.
func New(
	store site.Store,
	crawler Crawler,
	clock site.Clock,
	ids site.IDGenerator,
	hasher site.Hasher,
	archive site.Archive,
	publisher site.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = 2
	}
	return &Orchestrator{
		store:     store,
		crawler:   crawler,
		clock:     clock,
		ids:       ids,
		hasher:    hasher,
		archive:   archive,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// CrawlSite runs the pipeline for the given site. It returns
// site.ErrCrawlInProgress when a crawl for the same site is already
// running, and site.ErrNotFound when the site does not exist.
//
// The next-due timestamp advances whether the crawl succeeds or fails,
// so a persistently broken site cannot wedge the sweeper.
func (o *Orchestrator) CrawlSite(ctx context.Context, siteID string) (site.CrawlResult, error) {
	summary, err := o.store.GetSite(ctx, siteID)
	if err != nil {
		return site.CrawlResult{}, err
	}
	st := summary.Site

	if !o.acquire(st.ID) {
		return site.CrawlResult{}, site.ErrCrawlInProgress
	}
	defer o.release(st.ID)

	start := o.clock.Now()
	pages, skipped, err := o.crawler.Crawl(ctx, st.RootURL)
	if err != nil {
		metrics.ObserveCrawl("failed")
		o.logger.Warn("crawl failed",
			zap.String("site_id", st.ID),
			zap.String("root_url", st.RootURL),
			zap.Error(err),
		)
		o.reschedule(ctx, st)
		return site.CrawlResult{}, err
	}

	result, doc, err := o.buildArtifacts(st, pages, skipped)
	if err != nil {
		o.reschedule(ctx, st)
		return site.CrawlResult{}, err
	}

	if err := o.store.SaveCrawl(ctx, result, doc); err != nil {
		o.reschedule(ctx, st)
		return site.CrawlResult{}, fmt.Errorf("save crawl: %w", err)
	}

	metrics.ObserveCrawl("succeeded")
	metrics.AddPagesCrawled(len(pages))
	metrics.AddPagesSkipped(len(skipped))
	metrics.ObserveCrawlDuration(o.clock.Now().Sub(start))

	o.archiveDocument(ctx, doc)
	o.publishDocument(ctx, st, doc)
	o.reschedule(ctx, st)

	o.logger.Info("crawl completed",
		zap.String("site_id", st.ID),
		zap.String("root_url", st.RootURL),
		zap.Int("pages", len(pages)),
		zap.Int("skipped", len(skipped)),
	)
	return result, nil
}

// SweepDue crawls every site whose next-due timestamp has passed.
// Failures are isolated per site; the report tallies each outcome.
func (o *Orchestrator) SweepDue(ctx context.Context) (site.SweepReport, error) {
	now := o.clock.Now()
	due, err := o.store.ListDueSites(ctx, now)
	if err != nil {
		return site.SweepReport{}, fmt.Errorf("list due sites: %w", err)
	}

	outcomes := make([]site.SweepOutcome, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.SweepConcurrency)
	for i, st := range due {
		g.Go(func() error {
			outcomes[i] = o.sweepOne(gctx, st)
			return nil
		})
	}
	_ = g.Wait()

	report := site.SweepReport{Outcomes: outcomes}
	for _, out := range outcomes {
		switch out.Status {
		case site.SweepSucceeded:
			report.Succeeded++
		case site.SweepSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	o.logger.Info("sweep completed",
		zap.Int("due", len(due)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (o *Orchestrator) sweepOne(ctx context.Context, st site.Site) site.SweepOutcome {
	out := site.SweepOutcome{SiteID: st.ID, RootURL: st.RootURL}
	result, err := o.CrawlSite(ctx, st.ID)
	switch {
	case err == nil:
		out.Status = site.SweepSucceeded
		out.Pages = result.PageCount
	case errors.Is(err, site.ErrCrawlInProgress):
		out.Status = site.SweepSkipped
		out.Error = err.Error()
	default:
		out.Status = site.SweepFailed
		out.Error = err.Error()
	}
	metrics.ObserveSweepOutcome(string(out.Status))
	return out
}

func (o *Orchestrator) buildArtifacts(st site.Site, pages []site.PageInfo, skipped []site.SkippedPage) (site.CrawlResult, site.GeneratedDocument, error) {
	resultID, err := o.ids.NewID()
	if err != nil {
		return site.CrawlResult{}, site.GeneratedDocument{}, fmt.Errorf("generate crawl id: %w", err)
	}
	docID, err := o.ids.NewID()
	if err != nil {
		return site.CrawlResult{}, site.GeneratedDocument{}, fmt.Errorf("generate document id: %w", err)
	}

	content := generate.Generate(pages, generate.Options{
		SiteName: st.Name,
		RootURL:  st.RootURL,
	})
	checksum, err := o.hasher.Hash([]byte(content))
	if err != nil {
		return site.CrawlResult{}, site.GeneratedDocument{}, fmt.Errorf("hash document: %w", err)
	}

	now := o.clock.Now()
	result := site.CrawlResult{
		ID:         resultID,
		SiteID:     st.ID,
		FinishedAt: now,
		PageCount:  len(pages),
		Pages:      pages,
		Skipped:    skipped,
	}
	doc := site.GeneratedDocument{
		ID:            docID,
		SiteID:        st.ID,
		CrawlResultID: resultID,
		Content:       content,
		Checksum:      checksum,
		GeneratedAt:   now,
	}
	return result, doc, nil
}

// archiveDocument is best effort; an archive failure never fails the crawl.
func (o *Orchestrator) archiveDocument(ctx context.Context, doc site.GeneratedDocument) {
	if o.archive == nil {
		return
	}
	path := fmt.Sprintf("sites/%s/%s.llms.txt", doc.SiteID, doc.ID)
	uri, err := o.archive.PutObject(ctx, path, "text/plain; charset=utf-8", strings.NewReader(doc.Content))
	if err != nil {
		o.logger.Warn("archive document failed",
			zap.String("site_id", doc.SiteID),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("document archived",
		zap.String("document_id", doc.ID),
		zap.String("uri", uri),
	)
}

// publishDocument is best effort; a publish failure never fails the crawl.
func (o *Orchestrator) publishDocument(ctx context.Context, st site.Site, doc site.GeneratedDocument) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"site_id":     st.ID,
		"root_url":    st.RootURL,
		"document_id": doc.ID,
		"checksum":    doc.Checksum,
		"timestamp":   doc.GeneratedAt.Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, EventDocumentGenerated, payload); err != nil {
		o.logger.Warn("publish document event failed",
			zap.String("site_id", st.ID),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) reschedule(ctx context.Context, st site.Site) {
	next := site.NextCrawlAt(st.Cadence, o.clock.Now())
	if err := o.store.UpdateNextCrawl(ctx, st.ID, next, o.clock.Now()); err != nil {
		o.logger.Warn("reschedule failed", zap.String("site_id", st.ID), zap.Error(err))
	}
}

func (o *Orchestrator) acquire(siteID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight == nil {
		o.inflight = make(map[string]struct{})
	}
	if _, busy := o.inflight[siteID]; busy {
		return false
	}
	o.inflight[siteID] = struct{}{}
	return true
}

func (o *Orchestrator) release(siteID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, siteID)
}

var _ Crawler = (*crawl.Crawler)(nil)
