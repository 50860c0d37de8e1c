// Package collyfetcher implements site.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/llmstxt-dev/llmstxt-service/internal/fetcher/ratelimit"
	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

const minParagraphLength = 40

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodyBytes  int
	// PerHostRPS paces fetches against each host. Zero disables pacing.
	PerHostRPS float64
}

// Fetcher fetches one page per call, extracting the title, a short
// description, and same-site outbound links. It performs no retries;
// retry policy belongs to the caller.
type Fetcher struct {
	cfg           Config
	limiter       *ratelimit.Limiter
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		limiter:       ratelimit.New(cfg.PerHostRPS, 1),
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET and parses page metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (site.PageFetch, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return site.PageFetch{}, f.classify(rawURL, 0, false, err)
	}

	origin := site.Origin(rawURL)
	start := time.Now()

	var (
		page     site.PageFetch
		metaDesc string
		ogDesc   string
		firstPar string
		tooLarge bool
	)
	var status int
	seen := make(map[string]struct{})

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.MaxBodyBytes > 0 {
		collector.MaxBodySize = f.cfg.MaxBodyBytes
	}

	collector.OnResponseHeaders(func(r *colly.Response) {
		if f.cfg.MaxBodyBytes <= 0 {
			return
		}
		if n, err := strconv.Atoi(r.Headers.Get("Content-Length")); err == nil && n > f.cfg.MaxBodyBytes {
			tooLarge = true
			r.Request.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		final := r.Request.URL.String()
		if normalized, err := site.NormalizeRootURL(final); err == nil {
			final = normalized
		}
		page.URL = final
		page.StatusCode = r.StatusCode
	})

	collector.OnHTML("title", func(e *colly.HTMLElement) {
		if page.Title == "" {
			page.Title = strings.TrimSpace(e.Text)
		}
	})
	collector.OnHTML(`meta[name="description"]`, func(e *colly.HTMLElement) {
		if metaDesc == "" {
			metaDesc = strings.TrimSpace(e.Attr("content"))
		}
	})
	collector.OnHTML(`meta[property="og:description"]`, func(e *colly.HTMLElement) {
		if ogDesc == "" {
			ogDesc = strings.TrimSpace(e.Attr("content"))
		}
	})
	collector.OnHTML("p", func(e *colly.HTMLElement) {
		if firstPar != "" {
			return
		}
		if text := strings.TrimSpace(e.Text); len(text) >= minParagraphLength {
			firstPar = text
		}
	})
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if href == "" || skipHref(href) {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			// Unresolvable href; resolving the empty string against the
			// base would fabricate a self-link.
			return
		}
		link, err := site.NormalizeLink(abs, rawURL)
		if err != nil || !site.SameSite(link, origin) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		page.Links = append(page.Links, link)
	})

	var onErr error
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			status = r.StatusCode
		}
		onErr = err
	})

	if err := f.runCollector(ctx, collector, rawURL); err != nil {
		return site.PageFetch{}, f.classify(rawURL, status, tooLarge, err)
	}
	if onErr != nil {
		return site.PageFetch{}, f.classify(rawURL, status, tooLarge, onErr)
	}

	page.Duration = time.Since(start)
	if page.URL == "" {
		page.URL = rawURL
	}
	switch {
	case metaDesc != "":
		page.Description = metaDesc
	case ogDesc != "":
		page.Description = ogDesc
	default:
		page.Description = firstPar
	}
	return page, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// classify maps transport and status failures onto the fetch error taxonomy.
func (f *Fetcher) classify(url string, status int, tooLarge bool, err error) *site.FetchError {
	if tooLarge {
		return &site.FetchError{Kind: site.FetchTooLarge, URL: url, Err: err}
	}
	if status != 0 && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		return &site.FetchError{Kind: site.FetchHTTP, URL: url, StatusCode: status, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &site.FetchError{Kind: site.FetchTimeout, URL: url, Err: err}
	}
	return &site.FetchError{Kind: site.FetchNetwork, URL: url, Err: err}
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "#") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "javascript:")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
