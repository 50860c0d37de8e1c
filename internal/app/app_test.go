// Package app_test contains unit tests for the provider container.
package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/app"
	"github.com/llmstxt-dev/llmstxt-service/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Crawler: config.CrawlerConfig{
			MaxPages:      50,
			MaxDepth:      3,
			BudgetSeconds: 60,
			Concurrency:   4,
			QueueWorkers:  2,
		},
		HTTP:      config.HTTPConfig{TimeoutSeconds: 15},
		Store:     config.StoreConfig{Provider: "memory"},
		Archive:   config.ArchiveConfig{Provider: "noop"},
		Publisher: config.PublisherConfig{Provider: "noop"},
	}
}

func TestNewMemoryProviders(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Archive.Provider = "memory"
	cfg.Publisher.Provider = "memory"

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	require.NotNil(t, a.Archive)
	require.NotNil(t, a.Publisher)
}

func TestNewNoopArchiveAndPublisher(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	require.Nil(t, a.Archive)
	require.Nil(t, a.Publisher)
}

func TestNewSQLiteStore(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Store.Provider = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "llmstxt.db")

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
}

func TestNewUnknownProviders(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Store.Provider = "mystery"
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Archive.Provider = "mystery"
	_, err = app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Publisher.Provider = "mystery"
	_, err = app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestNewLocalArchive(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Archive.Provider = "local"
	cfg.Archive.BaseDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Archive)
}
