// Package crawl implements the bounded breadth-first site traversal.
package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// Limits bounds a single crawl. Reaching any limit is a normal
// termination condition, not a failure.
type Limits struct {
	MaxPages    int
	MaxDepth    int
	Budget      time.Duration
	Concurrency int
}

// Crawler walks a site breadth-first from its root, using a page fetcher
// for each URL and following only same-site links. Pages within one depth
// level fetch in parallel, but results and newly discovered links are
// collected in frontier order, so the page set is deterministic for a
// given site snapshot.
type Crawler struct {
	fetcher site.Fetcher
	limits  Limits
	logger  *zap.Logger
}

// New constructs a Crawler.
func New(fetcher site.Fetcher, limits Limits, logger *zap.Logger) *Crawler {
	if limits.MaxPages <= 0 {
		limits.MaxPages = 50
	}
	if limits.MaxDepth < 0 {
		limits.MaxDepth = 0
	}
	if limits.Budget <= 0 {
		limits.Budget = 60 * time.Second
	}
	if limits.Concurrency <= 0 {
		limits.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		fetcher: fetcher,
		limits:  limits,
		logger:  logger,
	}
}

type frontierItem struct {
	url   string
	depth int
}

type fetchOutcome struct {
	page site.PageFetch
	err  error
}

// Crawl fetches up to MaxPages pages reachable from rootURL. Per-page
// failures become skipped-page records; only a failing root page aborts
// the crawl, with an error matching site.ErrRootUnreachable.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) ([]site.PageInfo, []site.SkippedPage, error) {
	root, err := site.NormalizeRootURL(rootURL)
	if err != nil {
		return nil, nil, err
	}
	origin := site.Origin(root)

	ctx, cancel := context.WithTimeout(ctx, c.limits.Budget)
	defer cancel()

	visited := map[string]struct{}{root: {}}
	frontier := []frontierItem{{url: root, depth: 0}}

	var pages []site.PageInfo
	var skipped []site.SkippedPage

	for len(frontier) > 0 && len(pages) < c.limits.MaxPages && ctx.Err() == nil {
		remaining := c.limits.MaxPages - len(pages)
		batch := frontier
		if len(batch) > remaining {
			batch = batch[:remaining]
		}

		outcomes := c.fetchBatch(ctx, batch)

		var next []frontierItem
		for i, item := range batch {
			out := outcomes[i]
			if out.err != nil {
				if item.depth == 0 {
					return nil, nil, fmt.Errorf("%w: %s: %v", site.ErrRootUnreachable, item.url, out.err)
				}
				if ctx.Err() != nil {
					// Budget expired mid-level; keep what succeeded.
					break
				}
				skipped = append(skipped, site.SkippedPage{
					URL:    item.url,
					Depth:  item.depth,
					Reason: out.err.Error(),
				})
				continue
			}

			pages = append(pages, site.PageInfo{
				URL:         out.page.URL,
				Title:       out.page.Title,
				Description: out.page.Description,
				Links:       out.page.Links,
				Depth:       item.depth,
			})
			if out.page.URL != item.url {
				// Redirected landing page counts as visited too.
				visited[out.page.URL] = struct{}{}
			}

			if item.depth >= c.limits.MaxDepth {
				continue
			}
			for _, link := range out.page.Links {
				if !site.SameSite(link, origin) {
					continue
				}
				if _, ok := visited[link]; ok {
					continue
				}
				visited[link] = struct{}{}
				next = append(next, frontierItem{url: link, depth: item.depth + 1})
			}
		}
		// Pages cut from this level by the page budget go back on the
		// frontier ahead of deeper links, keeping breadth-first order
		// even when a failed fetch frees up budget.
		frontier = append(frontier[len(batch):], next...)
	}

	c.logger.Debug("crawl finished",
		zap.String("root", root),
		zap.Int("pages", len(pages)),
		zap.Int("skipped", len(skipped)),
	)
	return pages, skipped, nil
}

// fetchBatch fetches one frontier level with bounded parallelism.
// Outcomes are indexed by frontier position to keep ordering stable.
func (c *Crawler) fetchBatch(ctx context.Context, batch []frontierItem) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(batch))
	g := new(errgroup.Group)
	g.SetLimit(c.limits.Concurrency)
	for i, item := range batch {
		g.Go(func() error {
			page, err := c.fetcher.Fetch(ctx, item.url)
			outcomes[i] = fetchOutcome{page: page, err: err}
			return nil
		})
	}
	// Workers never return errors; failures land in their outcome slot.
	_ = g.Wait()
	return outcomes
}
