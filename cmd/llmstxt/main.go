// Package main wires together the llms.txt service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/api"
	"github.com/llmstxt-dev/llmstxt-service/internal/app"
	"github.com/llmstxt-dev/llmstxt-service/internal/clock/system"
	"github.com/llmstxt-dev/llmstxt-service/internal/config"
	"github.com/llmstxt-dev/llmstxt-service/internal/crawl"
	"github.com/llmstxt-dev/llmstxt-service/internal/dispatcher"
	collyfetcher "github.com/llmstxt-dev/llmstxt-service/internal/fetcher/colly"
	"github.com/llmstxt-dev/llmstxt-service/internal/hash/sha256"
	"github.com/llmstxt-dev/llmstxt-service/internal/id/uuid"
	"github.com/llmstxt-dev/llmstxt-service/internal/logging"
	"github.com/llmstxt-dev/llmstxt-service/internal/metrics"
	"github.com/llmstxt-dev/llmstxt-service/internal/orchestrator"
	queueMemory "github.com/llmstxt-dev/llmstxt-service/internal/queue/memory"
	"github.com/llmstxt-dev/llmstxt-service/internal/scheduler"
	"github.com/llmstxt-dev/llmstxt-service/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	providers, err := app.New(ctx, cfg, logger.Named("app"))
	if err != nil {
		logger.Error("provider init failed", zap.Error(err))
		os.Exit(1)
	}
	defer providers.Close()

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		PerHostRPS:    cfg.Crawler.PerHostRPS,
	})
	crawler := crawl.New(fetcher, crawl.Limits{
		MaxPages:    cfg.Crawler.MaxPages,
		MaxDepth:    cfg.Crawler.MaxDepth,
		Budget:      cfg.CrawlBudget(),
		Concurrency: cfg.Crawler.Concurrency,
	}, logger.Named("crawl"))

	orch := orchestrator.New(
		providers.Store,
		crawler,
		clock,
		idGen,
		hasher,
		providers.Archive,
		providers.Publisher,
		orchestrator.Config{SweepConcurrency: cfg.Crawler.Concurrency},
		logger.Named("orchestrator"),
	)

	queue := queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	var workers []*worker.Worker
	for i := 0; i < cfg.Crawler.QueueWorkers; i++ {
		workers = append(workers, worker.New(
			queue,
			orch,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(
		providers.Store,
		orch,
		dispatch,
		idGen,
		clock,
		cfg,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Crawler.QueueWorkers))
		dispatch.Run(ctx)
	}()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, orch, logger.Named("scheduler"))
		if err != nil {
			logger.Error("scheduler init failed", zap.Error(err))
			os.Exit(1)
		}
		sched.Start()
		logger.Info("scheduler started", zap.String("spec", cfg.Scheduler.Spec))
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}
