// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Store     StoreConfig     `mapstructure:"store"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// CronSecret authenticates calls to the due-site sweep endpoint.
	// When empty, the endpoint rejects every request.
	CronSecret string `mapstructure:"cron_secret"`
}

// CrawlerConfig bounds a single crawl run and the background worker pool.
type CrawlerConfig struct {
	MaxPages      int     `mapstructure:"max_pages"`
	MaxDepth      int     `mapstructure:"max_depth"`
	BudgetSeconds int     `mapstructure:"budget_seconds"`
	Concurrency   int     `mapstructure:"concurrency"`
	UserAgent     string  `mapstructure:"user_agent"`
	RespectRobots bool    `mapstructure:"respect_robots"`
	PerHostRPS    float64 `mapstructure:"per_host_rps"`
	QueueWorkers  int     `mapstructure:"queue_workers"`
	QueueDepth    int     `mapstructure:"queue_depth"`
}

// HTTPConfig configures per-page fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int `mapstructure:"max_body_bytes"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Provider is one of "memory", "sqlite", or "postgres".
	Provider string `mapstructure:"provider"`
	// Path is the database file for the sqlite provider.
	Path string `mapstructure:"path"`
	// DSN is the connection string for the postgres provider.
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects where generated documents are archived.
type ArchiveConfig struct {
	// Provider is one of "noop", "memory", "local", or "gcs".
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
}

// PublisherConfig selects where document events are published.
type PublisherConfig struct {
	// Provider is one of "noop", "memory", or "pubsub".
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// SchedulerConfig controls the built-in sweep trigger. Deployments
// driven by an external cron leave it disabled.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LLMSTXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.max_pages", 50)
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.budget_seconds", 60)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "llmstxt-bot/0.1")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.per_host_rps", 4.0)
	v.SetDefault("crawler.queue_workers", 2)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_body_bytes", 5*1024*1024)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.path", "llmstxt.db")
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "@every 1h")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.BudgetSeconds <= 0 {
		return fmt.Errorf("crawler.budget_seconds must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.PerHostRPS < 0 {
		return fmt.Errorf("crawler.per_host_rps must be >= 0")
	}
	if c.Crawler.QueueWorkers <= 0 {
		return fmt.Errorf("crawler.queue_workers must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Store.Provider {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the sqlite provider")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	switch c.Archive.Provider {
	case "noop", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local provider")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown archive provider %q", c.Archive.Provider)
	}
	switch c.Publisher.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown publisher provider %q", c.Publisher.Provider)
	}
	return nil
}

// CrawlBudget returns the per-crawl time budget.
func (c Config) CrawlBudget() time.Duration {
	return time.Duration(c.Crawler.BudgetSeconds) * time.Second
}

// FetchTimeout returns the per-page fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
