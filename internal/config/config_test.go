package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.MaxPages != 50 || cfg.Crawler.MaxDepth != 3 {
		t.Fatalf("expected default crawl limits, got %+v", cfg.Crawler)
	}
	if !cfg.Crawler.RespectRobots {
		t.Fatal("expected robots to be respected by default")
	}
	if cfg.Crawler.PerHostRPS != 4.0 {
		t.Fatalf("expected default per-host rps, got %v", cfg.Crawler.PerHostRPS)
	}
	if cfg.Store.Provider != "memory" {
		t.Fatalf("expected memory store by default, got %q", cfg.Store.Provider)
	}
	if cfg.Scheduler.Enabled {
		t.Fatal("expected scheduler disabled by default")
	}
	if got := cfg.CrawlBudget(); got != 60*time.Second {
		t.Fatalf("expected crawl budget 60s, got %v", got)
	}
	if got := cfg.FetchTimeout(); got != 15*time.Second {
		t.Fatalf("expected fetch timeout 15s, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  cron_secret: sweep-secret
crawler:
  max_pages: 10
  max_depth: 1
  budget_seconds: 30
  concurrency: 2
  user_agent: llmstxt-agent
  respect_robots: false
  queue_workers: 4
  queue_depth: 128
http:
  timeout_seconds: 45
  max_body_bytes: 1048576
store:
  provider: sqlite
  path: /tmp/llmstxt-test.db
archive:
  provider: local
  base_dir: /tmp/llmstxt-archive
publisher:
  provider: memory
scheduler:
  enabled: true
  spec: "@every 15m"
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.CronSecret != "sweep-secret" {
		t.Fatalf("expected cron secret to load, got %q", cfg.Server.CronSecret)
	}
	if cfg.Crawler.MaxPages != 10 || cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Store.Provider != "sqlite" || cfg.Store.Path != "/tmp/llmstxt-test.db" {
		t.Fatalf("expected sqlite store config: %+v", cfg.Store)
	}
	if cfg.Archive.Provider != "local" || cfg.Archive.BaseDir != "/tmp/llmstxt-archive" {
		t.Fatalf("expected local archive config: %+v", cfg.Archive)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Spec != "@every 15m" {
		t.Fatalf("expected scheduler overrides: %+v", cfg.Scheduler)
	}
	if got := cfg.CrawlBudget(); got != 30*time.Second {
		t.Fatalf("expected crawl budget 30s, got %v", got)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		Crawler: CrawlerConfig{
			MaxPages:      50,
			MaxDepth:      3,
			BudgetSeconds: 60,
			Concurrency:   4,
			QueueWorkers:  2,
		},
		HTTP:      HTTPConfig{TimeoutSeconds: 15},
		Store:     StoreConfig{Provider: "memory"},
		Archive:   ArchiveConfig{Provider: "noop"},
		Publisher: PublisherConfig{Provider: "noop"},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "invalid max pages",
			mutate: func(c *Config) { c.Crawler.MaxPages = 0 },
			want:   "crawler.max_pages",
		},
		{
			name:   "negative max depth",
			mutate: func(c *Config) { c.Crawler.MaxDepth = -1 },
			want:   "crawler.max_depth",
		},
		{
			name:   "invalid budget",
			mutate: func(c *Config) { c.Crawler.BudgetSeconds = 0 },
			want:   "crawler.budget_seconds",
		},
		{
			name:   "invalid timeout",
			mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			want:   "http.timeout_seconds",
		},
		{
			name:   "unknown store provider",
			mutate: func(c *Config) { c.Store.Provider = "mystery" },
			want:   "unknown store provider",
		},
		{
			name:   "sqlite missing path",
			mutate: func(c *Config) { c.Store.Provider = "sqlite"; c.Store.Path = "" },
			want:   "store.path",
		},
		{
			name:   "postgres missing dsn",
			mutate: func(c *Config) { c.Store.Provider = "postgres" },
			want:   "store.dsn",
		},
		{
			name:   "gcs missing bucket",
			mutate: func(c *Config) { c.Archive.Provider = "gcs" },
			want:   "archive.bucket",
		},
		{
			name:   "pubsub missing topic",
			mutate: func(c *Config) { c.Publisher.Provider = "pubsub" },
			want:   "publisher.project_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
