// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Upstream   UpstreamConfig    `mapstructure:"upstream"`
	Catalogs   map[string]string `mapstructure:"catalogs"`
	Scraper    ScraperConfig     `mapstructure:"scraper"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	Headless   HeadlessConfig    `mapstructure:"headless"`
	DB         DBConfig          `mapstructure:"db"`
	PubSub     PubSubConfig      `mapstructure:"pubsub"`
	Posters    PostersConfig     `mapstructure:"posters"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Politeness PolitenessConfig  `mapstructure:"politeness"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig points at the scraped site.
type UpstreamConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// ScraperConfig governs the per-page worker pool.
type ScraperConfig struct {
	Workers    int `mapstructure:"workers"`
	EntryLimit int `mapstructure:"entry_limit"`
}

// HTTPConfig configures fetch timeouts.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the rendered-fetch fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// DBConfig controls the document store connection.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for snapshot-created notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// PostersConfig controls poster archival.
type PostersConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PolitenessConfig bounds the upstream request rate.
type PolitenessConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOP250")
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
	v.SetDefault("upstream.base_url", "https://letterboxd.com")
	v.SetDefault("upstream.user_agent", "top250-scraper/0.1")
	v.SetDefault("catalogs", map[string]string{
		"top-250-filipino": "https://letterboxd.com/tuesjays/list/top-250-narrative-feature-length-filipino/",
	})
	v.SetDefault("scraper.workers", 4)
	v.SetDefault("scraper.entry_limit", 0)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("politeness.rps", 1.0)
	v.SetDefault("politeness.burst", 2)
	v.SetDefault("posters.enabled", false)
	v.SetDefault("posters.prefix", "posters")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if len(c.Catalogs) == 0 {
		return fmt.Errorf("at least one catalog must be configured")
	}
	if c.Scraper.Workers <= 0 {
		return fmt.Errorf("scraper.workers must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Politeness.Burst < 0 {
		return fmt.Errorf("politeness.burst must be >= 0")
	}
	return nil
}
