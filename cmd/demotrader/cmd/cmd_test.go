package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/demotrader/config"
	"github.com/rustyeddy/demotrader/journal"
	"github.com/rustyeddy/demotrader/session"
	"github.com/rustyeddy/demotrader/sim"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    sim.Level
		wantErr bool
	}{
		{"", sim.Level{}, false},
		{"2%", sim.Percent(2), false},
		{" 1.5% ", sim.Percent(1.5), false},
		{"$50", sim.Dollar(50), false},
		{"25", sim.Dollar(25), false},
		{"abc", sim.Level{}, true},
		{"%", sim.Level{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.UTC
	start, end, err := dayBounds(loc, "2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, loc), end)

	_, _, err = dayBounds(loc, "03/08/2026")
	assert.Error(t, err)
}

func TestOpenJournal(t *testing.T) {
	dir := t.TempDir()

	j, err := openJournal(config.JournalConfig{Type: "none"})
	require.NoError(t, err)
	assert.IsType(t, journal.Nop{}, j)

	j, err = openJournal(config.JournalConfig{
		Type:        "csv",
		TradesFile:  filepath.Join(dir, "trades.csv"),
		BalanceFile: filepath.Join(dir, "balance.csv"),
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = openJournal(config.JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "j.sqlite")})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = openJournal(config.JournalConfig{Type: "mongo"})
	assert.Error(t, err)
}

func TestNewSessionFromConfig(t *testing.T) {
	c := config.Default()
	c.Session.Instrument = "XAU_USD"
	c.Session.Strategy = "aggressive"
	c.Session.Seed = 42

	clock := session.NewManualClock(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	a, err := newSession(c, clock)
	require.NoError(t, err)
	assert.Equal(t, "XAU_USD", a.Instrument().ID)
	assert.Equal(t, 2345.50, a.Price())

	// Same seed, same path.
	clockB := session.NewManualClock(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	b, err := newSession(c, clockB)
	require.NoError(t, err)

	a.Start()
	b.Start()
	clock.Advance(25)
	clockB.Advance(25)
	assert.Equal(t, a.PriceSeries(), b.PriceSeries())

	c.Session.Speed = "ludicrous"
	_, err = newSession(c, clock)
	assert.Error(t, err)
}
