// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/jobstreet-scraper/internal/extract"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config captures all scraper configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig     `mapstructure:"crawler"`
	HTTP    HTTPConfig        `mapstructure:"http"`
	Extract extract.Selectors `mapstructure:"extract"`
	Store   StoreConfig       `mapstructure:"store"`
	Logging LoggingConfig     `mapstructure:"logging"`
	Server  ServerConfig      `mapstructure:"server"`
}

// CrawlerConfig governs pagination, politeness and page-level retries.
type CrawlerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	MaxPages          int           `mapstructure:"max_pages"`
	Concurrency       int           `mapstructure:"concurrency"`
	UserAgent         string        `mapstructure:"user_agent"`
	DelayMin          time.Duration `mapstructure:"delay_min"`
	DelayMax          time.Duration `mapstructure:"delay_max"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	FailureThreshold  float64       `mapstructure:"failure_threshold"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
}

// HTTPConfig configures the HTTP client and its connection-level retries.
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffFactor time.Duration `mapstructure:"backoff_factor"`
}

// StoreConfig selects and configures the job sink.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
}

// ServerConfig controls the optional status server; empty Addr disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Option adjusts a loaded Config before validation.
type Option func(*Config)

// WithDryRun switches the sink to the in-memory store.
func WithDryRun() Option {
	return func(c *Config) {
		c.Store.Driver = DriverMemory
	}
}

// Load builds a Config from disk/environment.
func Load(path string, opts ...Option) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
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
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.base_url", "https://www.jobstreet.com.ph/jobs")
	v.SetDefault("crawler.max_pages", 1000)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:66.0) Gecko/20100101 Firefox/66.0")
	v.SetDefault("crawler.delay_min", time.Second)
	v.SetDefault("crawler.delay_max", 2*time.Second)
	v.SetDefault("crawler.retry_delay", 5*time.Second)
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("crawler.requests_per_second", 0.0)
	v.SetDefault("crawler.failure_threshold", 0.5)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_factor", 100*time.Millisecond)

	sel := extract.DefaultSelectors()
	v.SetDefault("extract.listing", sel.Listing)
	v.SetDefault("extract.title", sel.Title)
	v.SetDefault("extract.company", sel.Company)
	v.SetDefault("extract.location", sel.Location)
	v.SetDefault("extract.salary", sel.Salary)
	v.SetDefault("extract.category", sel.Category)
	v.SetDefault("extract.sub_category", sel.SubCategory)
	v.SetDefault("extract.description", sel.Description)
	v.SetDefault("extract.description_item", sel.DescriptionItem)
	v.SetDefault("extract.posted", sel.Posted)

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "jaws")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("server.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url is required")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxAttempts <= 0 {
		return fmt.Errorf("crawler.max_attempts must be > 0")
	}
	if c.Crawler.DelayMin < 0 || c.Crawler.DelayMax < c.Crawler.DelayMin {
		return fmt.Errorf("crawler.delay_min must be >= 0 and <= crawler.delay_max")
	}
	if c.Crawler.FailureThreshold < 0 || c.Crawler.FailureThreshold > 1 {
		return fmt.Errorf("crawler.failure_threshold must be within [0, 1]")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for driver %q", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}
