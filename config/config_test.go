package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/demotrader/market"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 10000.0, cfg.Session.Endowment)
	assert.Equal(t, "BTC_USD", cfg.Session.Instrument)
	assert.Equal(t, "balanced", cfg.Session.Strategy)
	assert.Equal(t, "normal", cfg.Session.Speed)
	assert.Equal(t, 80, cfg.Session.Window)
	assert.Equal(t, 1000, cfg.Session.LogCapacity)
	assert.Equal(t, []string{"sma:20", "ema:9"}, cfg.Session.Indicators)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero endowment", func(c *Config) { c.Session.Endowment = 0 }, "session.endowment must be positive"},
		{"zero window", func(c *Config) { c.Session.Window = 0 }, "session.window must be positive"},
		{"zero log capacity", func(c *Config) { c.Session.LogCapacity = -1 }, "session.log_capacity must be positive"},
		{"unknown strategy", func(c *Config) { c.Session.Strategy = "reckless" }, "unknown strategy"},
		{"unknown speed", func(c *Config) { c.Session.Speed = "warp" }, "unknown speed"},
		{"bad indicator", func(c *Config) { c.Session.Indicators = []string{"rsi:14"} }, "session.indicators"},
		{"no indicators", func(c *Config) { c.Session.Indicators = nil }, ""},
		{"unknown instrument", func(c *Config) { c.Session.Instrument = "DOGE_USD" }, "unknown instrument"},
		{"bad custom instrument", func(c *Config) {
			c.Instruments = []market.Instrument{{ID: "X", BasePrice: -1, Volatility: 0.01}}
			c.Session.Instrument = "X"
		}, "base_price must be positive"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "trades_file and balance_file required"},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type must be"},
		{"negative rate", func(c *Config) { c.Server.RatePerSecond = -1 }, "rate limits must not be negative"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format must be"},
		{"custom catalog", func(c *Config) {
			c.Instruments = []market.Instrument{{ID: "TEST", BasePrice: 100, Volatility: 0.01}}
			c.Session.Instrument = "TEST"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"demo.yaml", "demo.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := Default()
			cfg.Session.Seed = 42
			cfg.Session.Instrument = "TEST"
			cfg.Instruments = []market.Instrument{{ID: "TEST", Name: "Test", BasePrice: 100, Volatility: 0.01}}
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "demo.sqlite"}
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)

			cat, err := loaded.Catalog()
			require.NoError(t, err)
			assert.Equal(t, []string{"TEST"}, cat.IDs())
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  instrument: ETH_USD\n  speed: fast\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ETH_USD", cfg.Session.Instrument)
	assert.Equal(t, "fast", cfg.Session.Speed)
	assert.Equal(t, 10000.0, cfg.Session.Endowment)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("session: [unterminated"), 0644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("session:\n  endowment: -5\n"), 0644))
	_, err = LoadFromFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
