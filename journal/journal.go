// journal/journal.go
package journal

import "time"

// TradeRecord is a closed demo position.
type TradeRecord struct {
	TradeID    string
	Instrument string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// BalanceSnapshot is one application of cash to the demo balance.
type BalanceSnapshot struct {
	Time   time.Time
	Before float64
	After  float64
	Reason string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordBalance(BalanceSnapshot) error
	Close() error
}

// Nop discards everything. It is the journal of a session that was not
// configured with one.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error       { return nil }
func (Nop) RecordBalance(BalanceSnapshot) error { return nil }
func (Nop) Close() error                        { return nil }
