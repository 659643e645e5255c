package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.rawg.io/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Catalog.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.Cache.SearchTTL)
	assert.Equal(t, 15*time.Minute, cfg.Catalog.Cache.DetailTTL)
	assert.Equal(t, 24*time.Hour, cfg.Catalog.Cache.StaleTTL)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.ItemDelay)
	assert.Equal(t, time.Hour, cfg.Release.SweepInterval)
	assert.Equal(t, 6*time.Hour, cfg.Release.ReminderInterval)
	assert.Equal(t, 7, cfg.Release.ReminderHorizonDays)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("RT_CATALOG_KEY", "secret-key")
	t.Setenv("RT_DB_PASSWORD", "hunter2")

	data := []byte(`
database:
  host: db
  port: 5432
  user: tracker
  password: ${RT_DB_PASSWORD}
  dbname: games
  sslmode: disable
catalog:
  api_key: ${RT_CATALOG_KEY}
  retry:
    max_attempts: 5
sync:
  batch_size: 10
  interval: 30m
release:
  timezone: Europe/Berlin
  reminder_horizon_days: 3
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Catalog.APIKey)
	assert.Equal(t, 5, cfg.Catalog.Retry.MaxAttempts)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Release.ReminderHorizonDays)
	assert.Equal(t, "host=db port=5432 user=tracker password=hunter2 dbname=games sslmode=disable", cfg.Database.DSN())

	loc, err := cfg.Release.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestParse_InvalidTimezone(t *testing.T) {
	_, err := Parse([]byte("release:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mars/Olympus")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  batch_size: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Sync.BatchSize)
}
