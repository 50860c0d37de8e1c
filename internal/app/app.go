// Package app initializes the provider-backed services the site store,
// archive, and publisher run on.
package app

import (
	"context"
	"fmt"
	"io"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	archivegcs "github.com/llmstxt-dev/llmstxt-service/internal/archive/gcs"
	archivelocal "github.com/llmstxt-dev/llmstxt-service/internal/archive/local"
	archivemem "github.com/llmstxt-dev/llmstxt-service/internal/archive/memory"
	"github.com/llmstxt-dev/llmstxt-service/internal/config"
	pubmem "github.com/llmstxt-dev/llmstxt-service/internal/publisher/memory"
	pubgcp "github.com/llmstxt-dev/llmstxt-service/internal/publisher/pubsub"
	"github.com/llmstxt-dev/llmstxt-service/internal/site"
	storemem "github.com/llmstxt-dev/llmstxt-service/internal/store/memory"
	storepg "github.com/llmstxt-dev/llmstxt-service/internal/store/postgres"
	storesqlite "github.com/llmstxt-dev/llmstxt-service/internal/store/sqlite"
)

// App holds the provider-backed services selected by configuration.
// It is initialized once at startup and closed on shutdown.
type App struct {
	Store     site.Store
	Archive   site.Archive
	Publisher site.Publisher

	logger  *zap.Logger
	closers []io.Closer
}

// New instantiates the store, archive, and publisher named by cfg.
// It fails fast when any provider cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)

	archive, err := a.newArchive(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Archive = archive

	publisher, err := a.newPublisher(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Publisher = publisher

	return a, nil
}

// Close shuts down every provider that was initialized, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close provider failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (site.Store, error) {
	switch cfg.Store.Provider {
	case "memory":
		logger.Info("using in-memory store; data is lost on restart")
		return storemem.New(), nil
	case "sqlite":
		logger.Info("using sqlite store", zap.String("path", cfg.Store.Path))
		store, err := storesqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		logger.Info("using postgres store")
		store, err := storepg.New(ctx, storepg.Config{
			DSN:      cfg.Store.DSN,
			MaxConns: cfg.Store.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}

func (a *App) newArchive(ctx context.Context, cfg config.Config) (site.Archive, error) {
	switch cfg.Archive.Provider {
	case "noop":
		a.logger.Info("document archiving disabled")
		return nil, nil
	case "memory":
		return archivemem.New(), nil
	case "local":
		a.logger.Info("archiving documents to local filesystem", zap.String("base_dir", cfg.Archive.BaseDir))
		archive, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("initialize local archive: %w", err)
		}
		return archive, nil
	case "gcs":
		a.logger.Info("archiving documents to GCS", zap.String("bucket", cfg.Archive.Bucket))
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		a.closers = append(a.closers, client)
		archive, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.Bucket})
		if err != nil {
			return nil, fmt.Errorf("initialize GCS archive: %w", err)
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}

func (a *App) newPublisher(ctx context.Context, cfg config.Config) (site.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "noop":
		a.logger.Info("document event publishing disabled")
		return nil, nil
	case "memory":
		return pubmem.New(), nil
	case "pubsub":
		a.logger.Info("publishing document events to Pub/Sub",
			zap.String("project", cfg.Publisher.ProjectID),
			zap.String("topic", cfg.Publisher.Topic),
		)
		client, err := pubsubv2.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create Pub/Sub client: %w", err)
		}
		a.closers = append(a.closers, client)
		return pubgcp.New(client.Publisher(cfg.Publisher.Topic)), nil
	default:
		return nil, fmt.Errorf("unknown publisher provider %q", cfg.Publisher.Provider)
	}
}
