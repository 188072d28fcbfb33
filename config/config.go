package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/demotrader/indicators"
	"github.com/rustyeddy/demotrader/market"
	"gopkg.in/yaml.v3"
)

// Config is the complete demotrader configuration.
type Config struct {
	Session     SessionConfig       `json:"session" yaml:"session"`
	Instruments []market.Instrument `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	Journal     JournalConfig       `json:"journal" yaml:"journal"`
	Server      ServerConfig        `json:"server" yaml:"server"`
	Log         LogConfig           `json:"log" yaml:"log"`
}

// SessionConfig holds the initial simulator settings.
type SessionConfig struct {
	Endowment   float64 `json:"endowment" yaml:"endowment"`
	Instrument  string  `json:"instrument" yaml:"instrument"`
	Strategy    string  `json:"strategy" yaml:"strategy"`
	Speed       string  `json:"speed" yaml:"speed"`
	Seed        uint32  `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 seeds from the clock
	Window      int     `json:"window" yaml:"window"`
	LogCapacity int     `json:"log_capacity" yaml:"log_capacity"`

	// Indicators are price overlays as "kind:period", e.g. "sma:20".
	Indicators []string `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

// JournalConfig selects where closed trades are recorded.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile  string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	BalanceFile string `json:"balance_file,omitempty" yaml:"balance_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// RatePerSecond limits API actions; Burst is the bucket size.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `json:"burst" yaml:"burst"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug|info|warn|error
	Format string `json:"format" yaml:"format"` // console|json
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// YAML is a superset of JSON, but keep an explicit JSON fallback for
	// files yaml.v3 rejects (tabs, for one).
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Catalog builds the instrument catalog, falling back to the built-in
// instruments when none are configured.
func (c *Config) Catalog() (*market.Catalog, error) {
	if len(c.Instruments) == 0 {
		return market.DefaultCatalog(), nil
	}
	return market.NewCatalog(c.Instruments...)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Session.Endowment <= 0 {
		return fmt.Errorf("session.endowment must be positive")
	}
	if c.Session.Window <= 0 {
		return fmt.Errorf("session.window must be positive")
	}
	if c.Session.LogCapacity <= 0 {
		return fmt.Errorf("session.log_capacity must be positive")
	}
	if _, err := market.ParseStrategy(c.Session.Strategy); err != nil {
		return fmt.Errorf("session.strategy: %w", err)
	}
	if _, err := market.ParseSpeed(c.Session.Speed); err != nil {
		return fmt.Errorf("session.speed: %w", err)
	}
	if _, err := indicators.ParseAll(c.Session.Indicators); err != nil {
		return fmt.Errorf("session.indicators: %w", err)
	}

	cat, err := c.Catalog()
	if err != nil {
		return fmt.Errorf("instruments: %w", err)
	}
	if c.Session.Instrument != "" {
		if _, err := cat.Lookup(c.Session.Instrument); err != nil {
			return fmt.Errorf("session.instrument: %w", err)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.BalanceFile == "" {
			return fmt.Errorf("journal trades_file and balance_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Server.RatePerSecond < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Endowment:   10_000,
			Instrument:  "BTC_USD",
			Strategy:    "balanced",
			Speed:       "normal",
			Window:      80,
			LogCapacity: 1000,
			Indicators:  []string{"sma:20", "ema:9"},
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RatePerSecond: 20,
			Burst:         40,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
