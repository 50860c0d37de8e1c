// Package api exposes the HTTP interface for the llms.txt service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/config"
	"github.com/llmstxt-dev/llmstxt-service/internal/metrics"
	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// CrawlRunner executes crawls on demand and sweeps due sites.
type CrawlRunner interface {
	CrawlSite(ctx context.Context, siteID string) (site.CrawlResult, error)
	SweepDue(ctx context.Context) (site.SweepReport, error)
}

// Enqueuer schedules background crawl requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req site.CrawlRequest) error
}

// Server wires HTTP handlers to the store and crawl pipeline.
type Server struct {
	router   chi.Router
	store    site.Store
	runner   CrawlRunner
	enqueuer Enqueuer
	idGen    site.IDGenerator
	clock    site.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The enqueuer
// may be nil; newly registered sites then wait for their scheduled crawl.
func NewServer(
	store site.Store,
	runner CrawlRunner,
	enqueuer Enqueuer,
	idGen site.IDGenerator,
	clock site.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		runner:   runner,
		enqueuer: enqueuer,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(2 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/sites", func(r chi.Router) {
			r.Get("/", s.listSites)
			r.Post("/", s.createSite)
			r.Route("/{site_id}", func(r chi.Router) {
				r.Get("/", s.getSite)
				r.Patch("/", s.updateSite)
				r.Delete("/", s.deleteSite)
				r.Post("/crawl", s.crawlSite)
				r.Get("/llms.txt", s.getDocument)
			})
		})
		r.Post("/cron/crawl-due", s.crawlDue)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "llmstxt-service",
		"time":    s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard dependency; one cheap query proves it.
	if _, err := s.store.ListSites(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createSiteRequest struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Cadence string `json:"cadence"`
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rootURL, err := site.NormalizeRootURL(req.URL)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	cadence, err := site.ParseCadence(req.Cadence)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	id, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate site id")
		return
	}
	now := s.clock.Now()
	st := site.Site{
		ID:          id,
		RootURL:     rootURL,
		Name:        req.Name,
		Cadence:     cadence,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextCrawlAt: site.NextCrawlAt(cadence, now),
	}
	if err := s.store.CreateSite(r.Context(), st); err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Kick off the initial crawl in the background, best effort.
	if s.enqueuer != nil {
		queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		req := site.CrawlRequest{SiteID: st.ID, Submitted: now.Unix()}
		if err := s.enqueuer.Enqueue(queueCtx, req); err != nil {
			s.logger.Warn("enqueue initial crawl failed",
				zap.String("site_id", st.ID),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.ListSites(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if sites == nil {
		sites = []site.SiteSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetSite(r.Context(), chi.URLParam(r, "site_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type updateSiteRequest struct {
	Cadence string `json:"cadence"`
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	var req updateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	cadence, err := site.ParseCadence(req.Cadence)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	siteID := chi.URLParam(r, "site_id")
	now := s.clock.Now()
	next := site.NextCrawlAt(cadence, now)
	if err := s.store.UpdateSiteSchedule(r.Context(), siteID, cadence, next, now); err != nil {
		s.writeDomainError(w, err)
		return
	}
	summary, err := s.store.GetSite(r.Context(), siteID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSite(r.Context(), chi.URLParam(r, "site_id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) crawlSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	result, err := s.runner.CrawlSite(r.Context(), siteID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	doc, err := s.store.LatestDocument(r.Context(), siteID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"crawl_id":    result.ID,
		"pages":       result.PageCount,
		"skipped":     len(result.Skipped),
		"content":     doc.Content,
		"checksum":    doc.Checksum,
		"finished_at": result.FinishedAt,
	})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.LatestDocument(r.Context(), chi.URLParam(r, "site_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc.Content)); err != nil {
		s.logger.Error("write document failed", zap.Error(err))
	}
}

func (s *Server) crawlDue(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeCron(r) {
		s.writeDomainError(w, site.ErrUnauthorized)
		return
	}
	report, err := s.runner.SweepDue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	if report.Outcomes == nil {
		report.Outcomes = []site.SweepOutcome{}
	}
	writeJSON(w, http.StatusOK, report)
}

// authorizeCron compares the shared secret in constant time. A server
// with no secret configured rejects every request.
func (s *Server) authorizeCron(r *http.Request) bool {
	secret := s.cfg.Server.CronSecret
	if secret == "" {
		return false
	}
	provided := r.Header.Get("X-Cron-Secret")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, site.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, site.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, site.ErrConflict):
		writeError(w, http.StatusConflict, "site already registered")
	case errors.Is(err, site.ErrCrawlInProgress):
		writeError(w, http.StatusConflict, "crawl already in progress")
	case errors.Is(err, site.ErrRootUnreachable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, site.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
