package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/demotrader/activity"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/sim"
)

// Snapshot is the structured, downloadable export of a session. It holds
// no generator state.
type Snapshot struct {
	Balance            float64          `json:"balance"`
	SelectedInstrument string           `json:"selectedInstrument"`
	Strategy           market.Strategy  `json:"strategy"`
	Positions          []sim.Position   `json:"positions"`
	PriceSeries        []Point          `json:"priceSeries"`
	PnLSeries          []Point          `json:"pnlSeries"`
	Logs               []activity.Entry `json:"logs"`

	Speed      market.Speed       `json:"speed"`
	State      State              `json:"state"`
	Price      float64            `json:"price"`
	Ticks      uint64             `json:"ticks"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	ExportedAt time.Time          `json:"exportedAt"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Balance:            s.acct.Balance(),
		SelectedInstrument: s.inst.ID,
		Strategy:           s.strategy,
		Positions:          s.ledger.Positions(),
		PriceSeries:        s.prices.Points(),
		PnLSeries:          s.pnl.Points(),
		Logs:               s.log.Entries(),
		Speed:              s.speed,
		State:              s.state,
		Price:              s.price,
		Ticks:              s.ticks,
		Indicators:         s.overlay.Values(),
		ExportedAt:         s.opts.Now(),
	}
}

// ExportJSON renders the snapshot as indented JSON.
func (s *Session) ExportJSON() ([]byte, error) {
	return s.Snapshot().MarshalIndent()
}

// ExportText renders the activity log as "[HH:MM:SS] message" lines.
func (s *Session) ExportText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Text()
}

func (snap Snapshot) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

// Text renders the snapshot's log the same way ExportText does.
func (snap Snapshot) Text() string {
	return activity.Text(snap.Logs)
}

func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
