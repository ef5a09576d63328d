// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/crawler"
	"github.com/JakeFAU/adfiller/internal/router"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	Categories []ad.Category    `mapstructure:"categories"`
	Receivers  []ad.Receiver    `mapstructure:"receivers"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Server     ServerConfig     `mapstructure:"server"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CrawlerConfig governs the identifier search and page fetching.
type CrawlerConfig struct {
	BaseID            int64         `mapstructure:"base_id"`
	MaxMisses         int           `mapstructure:"max_misses"`
	MaxHours          float64       `mapstructure:"max_hours"`
	IgnoreAuto        bool          `mapstructure:"ignore_auto"`
	ReseedSpread      int           `mapstructure:"reseed_spread"`
	Interval          time.Duration `mapstructure:"interval"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	UserAgents        []string      `mapstructure:"user_agents"`
	// Seed fixes the random source. Zero seeds from the clock.
	Seed          int64         `mapstructure:"seed"`
	ErrorPauseMin time.Duration `mapstructure:"error_pause_min"`
	ErrorPauseMax time.Duration `mapstructure:"error_pause_max"`
}

// CheckpointConfig selects where the last successful identifier is kept.
type CheckpointConfig struct {
	Provider string         `mapstructure:"provider"`
	Path     string         `mapstructure:"path"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig addresses the Redis checkpoint backend.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// PostgresConfig addresses the Postgres checkpoint backend.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
	Name  string `mapstructure:"name"`
}

// DeliveryConfig controls how rendered ads reach receivers.
type DeliveryConfig struct {
	Provider     string        `mapstructure:"provider"`
	Token        string        `mapstructure:"token"`
	Endpoint     string        `mapstructure:"endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Pause        time.Duration `mapstructure:"pause"`
	MessageLimit int           `mapstructure:"message_limit"`
	Margin       int           `mapstructure:"margin"`
}

// PublisherConfig holds metadata for distributed-ad notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig sets where ad snapshots are written.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	APIKey  string `mapstructure:"api_key"`
}

// TracingConfig toggles the OpenTelemetry trace provider.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADFILLER")
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
	if len(cfg.Categories) == 0 {
		cfg.Categories = router.DefaultCategories()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := crawler.DefaultConfig()
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("crawler.base_id", def.BaseID)
	v.SetDefault("crawler.max_misses", def.MaxMisses)
	v.SetDefault("crawler.max_hours", def.MaxHours)
	v.SetDefault("crawler.ignore_auto", def.IgnoreAuto)
	v.SetDefault("crawler.reseed_spread", def.ReseedSpread)
	v.SetDefault("crawler.interval", "10s")
	v.SetDefault("crawler.base_url", "https://www.revolico.com")
	v.SetDefault("crawler.timeout", "15s")
	v.SetDefault("crawler.requests_per_second", 1.0)
	v.SetDefault("crawler.seed", 0)
	v.SetDefault("crawler.error_pause_min", "1s")
	v.SetDefault("crawler.error_pause_max", "5s")
	v.SetDefault("checkpoint.provider", "local")
	v.SetDefault("checkpoint.path", "last_success_id")
	v.SetDefault("checkpoint.redis.address", "localhost:6379")
	v.SetDefault("checkpoint.redis.key", "adfiller:last_success_id")
	v.SetDefault("checkpoint.postgres.table", "crawl_checkpoints")
	v.SetDefault("checkpoint.postgres.name", "revolico")
	v.SetDefault("delivery.provider", "log")
	v.SetDefault("delivery.timeout", "30s")
	v.SetDefault("delivery.max_attempts", 10)
	v.SetDefault("delivery.pause", "500ms")
	v.SetDefault("delivery.message_limit", 4096)
	v.SetDefault("delivery.margin", 50)
	v.SetDefault("publisher.provider", "none")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.base_dir", "data")
	v.SetDefault("archive.prefix", "ads")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.CrawlerSettings().Validate(); err != nil {
		return err
	}
	if c.Crawler.Interval <= 0 {
		return fmt.Errorf("crawler.interval must be > 0")
	}
	if c.Crawler.ErrorPauseMin < 0 || c.Crawler.ErrorPauseMax < c.Crawler.ErrorPauseMin {
		return fmt.Errorf("crawler.error_pause_min must be >= 0 and <= crawler.error_pause_max")
	}
	switch c.Checkpoint.Provider {
	case "local":
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint.path is required for the local provider")
		}
	case "redis":
		if c.Checkpoint.Redis.Address == "" {
			return fmt.Errorf("checkpoint.redis.address is required for the redis provider")
		}
	case "postgres":
		if c.Checkpoint.Postgres.DSN == "" {
			return fmt.Errorf("checkpoint.postgres.dsn is required for the postgres provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown checkpoint.provider %q", c.Checkpoint.Provider)
	}
	switch c.Delivery.Provider {
	case "telegram":
		if c.Delivery.Token == "" {
			return fmt.Errorf("delivery.token is required for the telegram provider")
		}
	case "log":
	default:
		return fmt.Errorf("unknown delivery.provider %q", c.Delivery.Provider)
	}
	if c.Delivery.MaxAttempts <= 0 {
		return fmt.Errorf("delivery.max_attempts must be > 0")
	}
	switch c.Publisher.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown publisher.provider %q", c.Publisher.Provider)
	}
	switch c.Archive.Provider {
	case "none", "memory", "local":
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	known := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat.Name] = struct{}{}
	}
	for _, r := range c.Receivers {
		if _, ok := known[r.Category]; !ok {
			return fmt.Errorf("receiver %q follows unknown category %q", r.ID, r.Category)
		}
	}
	return nil
}

// CrawlerSettings converts the crawler section into crawler.Config.
func (c Config) CrawlerSettings() crawler.Config {
	return crawler.Config{
		BaseID:       c.Crawler.BaseID,
		MaxMisses:    c.Crawler.MaxMisses,
		MaxHours:     c.Crawler.MaxHours,
		IgnoreAuto:   c.Crawler.IgnoreAuto,
		ReseedSpread: c.Crawler.ReseedSpread,
	}
}
