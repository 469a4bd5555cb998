package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigurationError is fatal and pre-flight: a missing required option
// aborts before any network or store access.
type ConfigurationError struct {
	Option string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration option: %s", e.Option)
}

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Source    SourceConfig    `yaml:"source"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Search    SearchConfig    `yaml:"search"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Analytics AnalyticsConfig `yaml:"analytics"`

	DashboardURL string        `yaml:"dashboard_url"`
	Logging      LoggingConfig `yaml:"logging"`
}

// DatabaseConfig contains document store settings
type DatabaseConfig struct {
	Type     string `yaml:"type"` // "mysql" (default) or "postgres"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SourceConfig contains record source settings
type SourceConfig struct {
	// Type selects the record source: "arcgis", "html" or "csv".
	Type string `yaml:"type"`
	// URL is the ArcGIS feature feed endpoint.
	URL string `yaml:"url"`
	// PageURL is the dashboard page scraped by the HTML source.
	PageURL string `yaml:"page_url"`
	// CSVPath / StatsCSVPath point at flat export files for the CSV source.
	CSVPath      string `yaml:"csv_path"`
	StatsCSVPath string `yaml:"stats_csv_path"`
	// StatsURL is the daily statistics feed; State filters it.
	StatsURL string `yaml:"stats_url"`
	State    string `yaml:"state"`

	PageSize         int    `yaml:"page_size"`
	PageDelaySeconds int    `yaml:"page_delay_seconds"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	ChromePath       string `yaml:"chrome_path"`

	// CountyDataset is the path of the county reference file.
	CountyDataset string `yaml:"county_dataset"`
}

// SMTPConfig contains notifier settings
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"email_from"`
	To       string `yaml:"email_to"`
}

// SearchConfig contains search index settings
type SearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// SchedulerConfig contains scheduled run settings
type SchedulerConfig struct {
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time"`
}

// AnalyticsConfig contains derived-series settings
type AnalyticsConfig struct {
	Enabled             bool `yaml:"enabled"`
	RecomputeSimulation bool `yaml:"recompute_simulation"`
	ProjectionDays      int  `yaml:"projection_days"`
	RateWindow          int  `yaml:"rate_window"`
	TopCounties         int  `yaml:"top_counties"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "mysql",
			Host: "localhost",
			Port: 3306,
		},
		Source: SourceConfig{
			Type:             "arcgis",
			State:            "FL",
			PageSize:         2000,
			PageDelaySeconds: 5,
			TimeoutSeconds:   30,
			CountyDataset:    "./datasets/json/florida_counties.json",
		},
		SMTP: SMTPConfig{
			Server: "smtp.gmail.com",
			Port:   587,
		},
		Scheduler: SchedulerConfig{
			DailyRunEnabled: false,
			DailyRunTime:    "06:00",
		},
		Analytics: AnalyticsConfig{
			Enabled:        true,
			ProjectionDays: 14,
			RateWindow:     10,
			TopCounties:    5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file. Settings absent from the
// file fall back to environment variables, then to defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

// applyEnv fills empty options from the environment, matching the variable
// names the deployment scripts export.
func (c *Config) applyEnv() {
	setIfEmpty(&c.Database.Host, "DATABASE_HOST")
	setIfEmpty(&c.Database.User, "DATABASE_USER")
	setIfEmpty(&c.Database.Password, "DATABASE_PASSWORD")
	setIfEmpty(&c.Database.Database, "DATABASE_NAME")
	setIfEmpty(&c.DashboardURL, "DASHBOARD_URL")
	setIfEmpty(&c.SMTP.User, "SMTP_USER")
	setIfEmpty(&c.SMTP.Password, "SMTP_PASSWORD")
	setIfEmpty(&c.SMTP.From, "EMAIL_FROM")
	setIfEmpty(&c.SMTP.To, "EMAIL_TO")
	setIfEmpty(&c.Source.URL, "API_URL")
	setIfEmpty(&c.Source.PageURL, "DATA_PAGE_URL")
	setIfEmpty(&c.Source.StatsURL, "DAILY_STATS_API_URL")
}

func setIfEmpty(target *string, envVar string) {
	if *target == "" {
		*target = os.Getenv(envVar)
	}
}

// Validate checks that every option the configured collaborators require is
// present. It runs before any network or store access.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ConfigurationError{Option: "database.host"}
	}
	if c.Database.Database == "" {
		return &ConfigurationError{Option: "database.database"}
	}

	switch c.Source.Type {
	case "arcgis":
		if c.Source.URL == "" {
			return &ConfigurationError{Option: "source.url"}
		}
	case "html":
		if c.Source.PageURL == "" {
			return &ConfigurationError{Option: "source.page_url"}
		}
	case "csv":
		if c.Source.CSVPath == "" {
			return &ConfigurationError{Option: "source.csv_path"}
		}
	default:
		return &ConfigurationError{Option: "source.type"}
	}

	if c.SMTP.Enabled {
		if c.SMTP.User == "" {
			return &ConfigurationError{Option: "smtp.user"}
		}
		if c.SMTP.Password == "" {
			return &ConfigurationError{Option: "smtp.password"}
		}
		if c.SMTP.From == "" {
			return &ConfigurationError{Option: "smtp.email_from"}
		}
		if c.SMTP.To == "" {
			return &ConfigurationError{Option: "smtp.email_to"}
		}
		if c.DashboardURL == "" {
			return &ConfigurationError{Option: "dashboard_url"}
		}
	}

	if c.Search.Enabled && c.Search.Host == "" {
		return &ConfigurationError{Option: "search.host"}
	}

	return nil
}

// GetPageDelay returns the inter-page delay as a duration
func (c *SourceConfig) GetPageDelay() time.Duration {
	return time.Duration(c.PageDelaySeconds) * time.Second
}

// GetTimeout returns the request timeout as a duration
func (c *SourceConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
