package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	// DBPath is where the SQLite database lives
	DBPath string `json:"db_path"`

	// LogLevel controls file logging verbosity
	LogLevel string `json:"log_level"`

	// FiscalYear scopes budget queries and gap analysis
	FiscalYear int `json:"fiscal_year"`

	// Fusion tuning
	DecayHalfLifeHours float64            `json:"decay_half_life_hours"`
	SourceWeights      map[string]float64 `json:"source_weights,omitempty"`

	// CorrelationWindowHours bounds pair correlation on signal timestamps
	CorrelationWindowHours float64 `json:"correlation_window_hours"`

	// MaxSimWorkers caps concurrent simulation scenarios
	MaxSimWorkers int `json:"max_sim_workers"`

	// Feeds are the RSS sources polled for market headlines
	Feeds []FeedConfig `json:"feeds"`
}

// FeedConfig describes one RSS source and the fusion topic its headlines
// feed into.
type FeedConfig struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Topic string `json:"topic"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DBPath:                 DefaultDBPath(),
		LogLevel:               "info",
		FiscalYear:             time.Now().Year(),
		DecayHalfLifeHours:     48,
		CorrelationWindowHours: 72,
		MaxSimWorkers:          4,
		Feeds: []FeedConfig{
			{Name: "MarketWatch Top Stories", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories", Topic: "market_news"},
			{Name: "CNBC Finance", URL: "https://www.cnbc.com/id/10000664/device/rss/rss.html", Topic: "market_news"},
			{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex", Topic: "market_news"},
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fuseboard", "config.json")
}

// DefaultDBPath returns where the database lives unless overridden
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fuseboard", "fuseboard.db")
}

// Load reads config from the standard location, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from an explicit path. A missing file yields
// defaults with environment overrides applied; a corrupt file yields plain
// defaults rather than an error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), nil
	}

	return &cfg, nil
}

// Save writes config to the standard location
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to an explicit path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides fields from FUSEBOARD_* environment variables, so a
// shell session can retarget the database or verbosity without touching
// the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FUSEBOARD_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("FUSEBOARD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FUSEBOARD_FISCAL_YEAR"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			c.FiscalYear = year
		}
	}
}
