package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/router"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(41925759), cfg.Crawler.BaseID)
	assert.Equal(t, 10, cfg.Crawler.MaxMisses)
	assert.InDelta(t, 0.5, cfg.Crawler.MaxHours, 1e-9)
	assert.True(t, cfg.Crawler.IgnoreAuto)
	assert.Equal(t, 1000, cfg.Crawler.ReseedSpread)
	assert.Equal(t, 10*time.Second, cfg.Crawler.Interval)
	assert.Equal(t, "https://www.revolico.com", cfg.Crawler.BaseURL)
	assert.Equal(t, time.Second, cfg.Crawler.ErrorPauseMin)
	assert.Equal(t, 5*time.Second, cfg.Crawler.ErrorPauseMax)
	assert.Equal(t, "local", cfg.Checkpoint.Provider)
	assert.Equal(t, "log", cfg.Delivery.Provider)
	assert.Equal(t, 10, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Delivery.Pause)
	assert.Equal(t, 4096, cfg.Delivery.MessageLimit)
	assert.Equal(t, 50, cfg.Delivery.Margin)
	assert.Equal(t, "none", cfg.Publisher.Provider)
	assert.Equal(t, "none", cfg.Archive.Provider)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, router.DefaultCategories(), cfg.Categories)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logging:
  development: true
  level: debug
crawler:
  base_id: 100
  max_misses: 3
  max_hours: 1.5
  ignore_auto: false
  interval: 30s
  user_agents: ["agent-a", "agent-b"]
  seed: 7
checkpoint:
  provider: redis
  redis:
    address: redis:6379
    key: custom
delivery:
  provider: telegram
  token: abc
  max_attempts: 2
  pause: 1s
categories:
  - name: cars
    ids: [121, 122]
  - name: all
    ids: [0]
receivers:
  - id: "@cars"
    category: cars
  - id: "-1001"
    category: all
publisher:
  provider: pubsub
  project_id: proj
  topic: ads
archive:
  provider: gcs
  bucket: bucket
  prefix: snapshots
server:
  port: 9090
  api_key: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(100), cfg.Crawler.BaseID)
	assert.Equal(t, 3, cfg.Crawler.MaxMisses)
	assert.False(t, cfg.Crawler.IgnoreAuto)
	assert.Equal(t, 30*time.Second, cfg.Crawler.Interval)
	assert.Equal(t, []string{"agent-a", "agent-b"}, cfg.Crawler.UserAgents)
	assert.Equal(t, int64(7), cfg.Crawler.Seed)
	assert.Equal(t, "redis:6379", cfg.Checkpoint.Redis.Address)
	assert.Equal(t, "custom", cfg.Checkpoint.Redis.Key)
	assert.Equal(t, "abc", cfg.Delivery.Token)
	assert.Equal(t, time.Second, cfg.Delivery.Pause)
	assert.Equal(t, []ad.Category{
		{Name: "cars", IDs: []int{121, 122}},
		{Name: "all", IDs: []int{0}},
	}, cfg.Categories)
	assert.Equal(t, []ad.Receiver{
		{ID: "@cars", Category: "cars"},
		{ID: "-1001", Category: "all"},
	}, cfg.Receivers)
	assert.Equal(t, "proj", cfg.Publisher.ProjectID)
	assert.Equal(t, "snapshots", cfg.Archive.Prefix)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)

	cc := cfg.CrawlerSettings()
	assert.Equal(t, int64(100), cc.BaseID)
	assert.InDelta(t, 1.5, cc.MaxHours, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADFILLER_CRAWLER_BASE_ID", "555")
	t.Setenv("ADFILLER_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(555), cfg.Crawler.BaseID)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"base id", func(c *Config) { c.Crawler.BaseID = 0 }, "crawler.base_id"},
		{"max misses", func(c *Config) { c.Crawler.MaxMisses = 0 }, "crawler.max_misses"},
		{"max hours", func(c *Config) { c.Crawler.MaxHours = -1 }, "crawler.max_hours"},
		{"interval", func(c *Config) { c.Crawler.Interval = 0 }, "crawler.interval"},
		{"error pauses", func(c *Config) { c.Crawler.ErrorPauseMax = 0 }, "crawler.error_pause_min"},
		{"checkpoint provider", func(c *Config) { c.Checkpoint.Provider = "s3" }, "checkpoint.provider"},
		{"postgres dsn", func(c *Config) { c.Checkpoint.Provider = "postgres" }, "checkpoint.postgres.dsn"},
		{"telegram token", func(c *Config) { c.Delivery.Provider = "telegram" }, "delivery.token"},
		{"attempts", func(c *Config) { c.Delivery.MaxAttempts = 0 }, "delivery.max_attempts"},
		{"pubsub topic", func(c *Config) { c.Publisher.Provider = "pubsub" }, "publisher.project_id"},
		{"gcs bucket", func(c *Config) { c.Archive.Provider = "gcs" }, "archive.bucket"},
		{"server port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, "tracing.sample_ratio"},
		{"unknown receiver category", func(c *Config) {
			c.Receivers = []ad.Receiver{{ID: "@x", Category: "nope"}}
		}, "unknown category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.Categories = append([]ad.Category(nil), base.Categories...)
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
