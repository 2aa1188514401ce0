package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, `
catalog:
  states: [TX, OH]
  max_pages: 0
  selectors:
    title: "h2.name a"
filter:
  models: [t480, x1 carbon]
  min_price: 25
  max_price: 300
scan:
  workers: 4
  detail_timeout: 5s
schedule:
  cron: "*/30 * * * *"
push:
  enabled: true
  method: ntfy
  ntfy:
    url: https://ntfy.sh/tracker
`))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SCAN_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"TX", "OH"}, cfg.Catalog.States)
	assert.Equal(t, 1, cfg.Catalog.MaxPages, "zeroed values fall back to defaults")
	assert.Equal(t, "h2.name a", cfg.Catalog.Selectors.Title)
	assert.Equal(t, DefaultSelectors().Container, cfg.Catalog.Selectors.Container)
	assert.Equal(t, []string{"t480", "x1 carbon"}, cfg.Filter.Models)
	assert.Equal(t, []string{"lenovo", "thinkpad"}, cfg.Filter.Brands)
	assert.Equal(t, 25.0, cfg.Filter.MinPrice)
	assert.Equal(t, 300.0, cfg.Filter.MaxPrice)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 5*time.Second, cfg.Scan.DetailTimeout)
	assert.Equal(t, 96, cfg.Scan.MaxResults)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule.Cron)
	assert.Equal(t, "https://ntfy.sh/tracker", cfg.Push.Ntfy.URL)
	assert.Equal(t, "listings.db", cfg.DBPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SCAN_WORKERS", "3")
	t.Setenv("SCRAPE_CRON", "0 9 * * *")
	t.Setenv("SCAN_CRON", "0 12 * * *")
	t.Setenv("S3_BUCKET", "scan-archive")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DB_PATH", "/tmp/listings.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "0 9 * * *", cfg.Schedule.Cron)
	assert.Equal(t, "0 12 * * *", cfg.Schedule.ScanCron)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "/tmp/listings.db", cfg.DBPath)
	assert.Equal(t, "https://www.govdeals.com", cfg.Catalog.BaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "catalog: [unclosed"))
	_, err := Load()
	assert.Error(t, err)
}
