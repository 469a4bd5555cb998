package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	require.Equal(t, "mysql", cfg.Database.Type)
	require.Equal(t, "arcgis", cfg.Source.Type)
	require.Equal(t, 2000, cfg.Source.PageSize)
	require.Equal(t, 5*time.Second, cfg.Source.GetPageDelay())
	require.Equal(t, "06:00", cfg.Scheduler.DailyRunTime)
	require.Equal(t, 14, cfg.Analytics.ProjectionDays)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db.internal
  database: covid
source:
  type: html
  page_url: https://example.org/dashboard
  page_delay_seconds: 1
scheduler:
  daily_run_enabled: true
  daily_run_time: "07:30"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "html", cfg.Source.Type)
	require.Equal(t, "https://example.org/dashboard", cfg.Source.PageURL)
	require.Equal(t, time.Second, cfg.Source.GetPageDelay())
	require.True(t, cfg.Scheduler.DailyRunEnabled)
	require.Equal(t, "07:30", cfg.Scheduler.DailyRunTime)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvFallback(t *testing.T) {
	t.Setenv("DATABASE_HOST", "env-db")
	t.Setenv("DATABASE_NAME", "covid")
	t.Setenv("API_URL", "https://example.org/feed")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	// DefaultConfig already sets a host, so the env var must not override it.
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, "covid", cfg.Database.Database)
	require.Equal(t, "https://example.org/feed", cfg.Source.URL)
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiredOptions(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Database.Database = "covid"
		cfg.Source.URL = "https://example.org/feed"
		return cfg
	}

	cfg := base()
	cfg.Database.Database = ""
	requireMissing(t, cfg, "database.database")

	cfg = base()
	cfg.Source.URL = ""
	requireMissing(t, cfg, "source.url")

	cfg = base()
	cfg.Source.Type = "html"
	requireMissing(t, cfg, "source.page_url")

	cfg = base()
	cfg.Source.Type = "csv"
	requireMissing(t, cfg, "source.csv_path")

	cfg = base()
	cfg.Source.Type = "carrier-pigeon"
	requireMissing(t, cfg, "source.type")

	cfg = base()
	cfg.SMTP.Enabled = true
	requireMissing(t, cfg, "smtp.user")

	cfg = base()
	cfg.SMTP.Enabled = true
	cfg.SMTP.User = "alerts"
	cfg.SMTP.Password = "secret"
	cfg.SMTP.From = "alerts@example.org"
	cfg.SMTP.To = "oncall@example.org"
	requireMissing(t, cfg, "dashboard_url")

	cfg = base()
	cfg.Search.Enabled = true
	requireMissing(t, cfg, "search.host")
}

func requireMissing(t *testing.T, cfg *Config, option string) {
	t.Helper()
	err := cfg.Validate()
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, option, confErr.Option)
}
