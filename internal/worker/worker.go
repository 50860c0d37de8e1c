// Package worker implements the background crawl execution loop.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// CrawlRunner executes the crawl-and-generate pipeline for one site.
type CrawlRunner interface {
	CrawlSite(ctx context.Context, siteID string) (site.CrawlResult, error)
}

// Worker consumes crawl requests and runs them through the pipeline.
type Worker struct {
	queue  site.Queue
	runner CrawlRunner
	logger *zap.Logger
}

// New constructs a Worker.
func New(queue site.Queue, runner CrawlRunner, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  queue,
		runner: runner,
		logger: logger,
	}
}

// Run blocks, consuming crawl requests until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued crawl request", zap.String("site_id", req.SiteID))
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req site.CrawlRequest) {
	result, err := w.runner.CrawlSite(ctx, req.SiteID)
	switch {
	case err == nil:
		w.logger.Info("crawl request completed",
			zap.String("site_id", req.SiteID),
			zap.Int("pages", result.PageCount),
		)
	case errors.Is(err, site.ErrCrawlInProgress):
		// Another crawl beat us to it; the request is simply dropped.
		w.logger.Debug("crawl already in progress", zap.String("site_id", req.SiteID))
	case errors.Is(err, site.ErrNotFound):
		// The site was deleted after the request was enqueued.
		w.logger.Debug("site gone before crawl started", zap.String("site_id", req.SiteID))
	default:
		w.logger.Warn("crawl request failed",
			zap.String("site_id", req.SiteID),
			zap.Error(err),
		)
	}
}
