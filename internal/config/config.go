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
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Spider    SpiderConfig    `mapstructure:"spider"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Sitemap   SitemapConfig   `mapstructure:"sitemap"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Search    SearchConfig    `mapstructure:"search"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// SpiderConfig locates the page-fetching collaborator.
type SpiderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// EmbeddingConfig locates the embedding collaborator and its models.
type EmbeddingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	DenseModel     string `mapstructure:"dense_model"`
	SparseModel    string `mapstructure:"sparse_model"`
	Dimensions     int    `mapstructure:"dimensions"`
	SparseDims     int    `mapstructure:"sparse_dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SitemapConfig governs the sitemap discovery sweep.
type SitemapConfig struct {
	StartupDelaySeconds int `mapstructure:"startup_delay_seconds"`
	SweepIntervalSec    int `mapstructure:"sweep_interval_seconds"`
	PerSiteDelaySec     int `mapstructure:"per_site_delay_seconds"`
	StaleAfterDays      int `mapstructure:"stale_after_days"`
	WebsitesPerRun      int `mapstructure:"websites_per_run"`
}

// CrawlConfig governs crawl eligibility and the crawl loop.
type CrawlConfig struct {
	BatchSize        int `mapstructure:"batch_size"`
	StaleAfterDays   int `mapstructure:"stale_after_days"`
	CoolDownHours    int `mapstructure:"cool_down_hours"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	IdleDelaySec     int `mapstructure:"idle_delay_seconds"`
	FailureDelaySec  int `mapstructure:"failure_delay_seconds"`
}

// PipelineConfig governs the content embedding loop.
type PipelineConfig struct {
	ChunkSize       int `mapstructure:"chunk_size"`
	MinWordLen      int `mapstructure:"min_word_len"`
	BatchSize       int `mapstructure:"batch_size"`
	IdleDelaySec    int `mapstructure:"idle_delay_seconds"`
	FailureDelaySec int `mapstructure:"failure_delay_seconds"`
}

// SearchConfig tunes hybrid ranking.
type SearchConfig struct {
	DenseWeight     float64 `mapstructure:"dense_weight"`
	SparseWeight    float64 `mapstructure:"sparse_weight"`
	KeywordWeight   float64 `mapstructure:"keyword_weight"`
	MaxDistance     float64 `mapstructure:"max_distance"`
	DefaultPageSize int     `mapstructure:"default_page_size"`
	MaxPageSize     int     `mapstructure:"max_page_size"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXD")
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
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("spider.timeout_seconds", 120)
	v.SetDefault("embedding.dense_model", "nomic-embed-text")
	v.SetDefault("embedding.sparse_model", "splade-v3")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.sparse_dimensions", 30522)
	v.SetDefault("embedding.timeout_seconds", 30)
	v.SetDefault("sitemap.startup_delay_seconds", 30)
	v.SetDefault("sitemap.sweep_interval_seconds", 60)
	v.SetDefault("sitemap.per_site_delay_seconds", 2)
	v.SetDefault("sitemap.stale_after_days", 7)
	v.SetDefault("sitemap.websites_per_run", 10)
	v.SetDefault("crawl.batch_size", 20)
	v.SetDefault("crawl.stale_after_days", 31)
	v.SetDefault("crawl.cool_down_hours", 5)
	v.SetDefault("crawl.max_attempts", 5)
	v.SetDefault("crawl.idle_delay_seconds", 15)
	v.SetDefault("crawl.failure_delay_seconds", 30)
	v.SetDefault("pipeline.chunk_size", 500)
	v.SetDefault("pipeline.min_word_len", 2)
	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.idle_delay_seconds", 10)
	v.SetDefault("pipeline.failure_delay_seconds", 30)
	v.SetDefault("search.dense_weight", 0.3)
	v.SetDefault("search.sparse_weight", 0.3)
	v.SetDefault("search.keyword_weight", 0.4)
	v.SetDefault("search.max_distance", 2.0)
	v.SetDefault("search.default_page_size", 25)
	v.SetDefault("search.max_page_size", 100)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Spider.BaseURL == "" {
		return fmt.Errorf("spider.base_url must be set")
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url must be set")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be > 0")
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be > 0")
	}
	if c.Crawl.MaxAttempts <= 0 {
		return fmt.Errorf("crawl.max_attempts must be > 0")
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk_size must be > 0")
	}
	if c.Search.MaxDistance <= 0 {
		return fmt.Errorf("search.max_distance must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ServerTimeout converts the HTTP timeout config into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
