package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/demotrader/config"
	"github.com/rustyeddy/demotrader/indicators"
	"github.com/rustyeddy/demotrader/journal"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/pricing"
	"github.com/rustyeddy/demotrader/session"
	"github.com/rustyeddy/demotrader/sim"
)

// newSession builds a session from the loaded configuration.
func newSession(c *config.Config, clock session.Clock) (*session.Session, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	st, err := market.ParseStrategy(c.Session.Strategy)
	if err != nil {
		return nil, err
	}
	sp, err := market.ParseSpeed(c.Session.Speed)
	if err != nil {
		return nil, err
	}

	overlay, err := indicators.ParseAll(c.Session.Indicators)
	if err != nil {
		return nil, err
	}

	seed := pricing.TimeSeed
	if c.Session.Seed != 0 {
		seed = pricing.FixedSeed(c.Session.Seed)
	}

	return session.New(session.Options{
		Catalog:     cat,
		Instrument:  c.Session.Instrument,
		Strategy:    st,
		Speed:       sp,
		Endowment:   c.Session.Endowment,
		Window:      c.Session.Window,
		LogCapacity: c.Session.LogCapacity,
		Indicators:  overlay,
		Clock:       clock,
		Seed:        seed,
		Logger:      &log.Logger,
	})
}

// openJournal returns the configured journal. Type "none" yields a no-op.
func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return journal.Nop{}, nil
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.BalanceFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	}
	return nil, fmt.Errorf("unknown journal type %q", jc.Type)
}

// parseLevel reads a take-profit or stop-loss flag: "2%" is a percent of
// entry, "$5" or a bare "5" is a price distance. Empty means unset.
func parseLevel(s string) (sim.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sim.Level{}, nil
	}

	kind := sim.LevelDollar
	switch {
	case strings.HasSuffix(s, "%"):
		kind = sim.LevelPercent
		s = strings.TrimSuffix(s, "%")
	case strings.HasPrefix(s, "$"):
		s = strings.TrimPrefix(s, "$")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sim.Level{}, fmt.Errorf("level %q: %w", s, err)
	}
	return sim.Level{Kind: kind, Value: v}, nil
}
