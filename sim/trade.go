package sim

import (
	"time"

	"github.com/rustyeddy/demotrader/market"
)

// CloseReason records why a position left the book.
type CloseReason string

const (
	ReasonTarget CloseReason = "target"
	ReasonStop   CloseReason = "stop"
	ReasonManual CloseReason = "manual"
	ReasonClear  CloseReason = "clear"
)

// Position is one simulated trade. Once Closed is set the position is
// never mutated again.
type Position struct {
	ID         string      `json:"id"`
	Instrument string      `json:"instrument"`
	Side       market.Side `json:"side"`
	EntryPrice float64     `json:"entryPrice"`
	Quantity   float64     `json:"quantity"`
	EntryTime  time.Time   `json:"entryTime"`
	Target     *float64    `json:"target,omitempty"`
	Stop       *float64    `json:"stop,omitempty"`

	PnL         float64     `json:"pnl,omitempty"`
	Closed      bool        `json:"closed,omitempty"`
	ExitPrice   *float64    `json:"exitPrice,omitempty"`
	ExitTime    *time.Time  `json:"exitTime,omitempty"`
	CloseReason CloseReason `json:"reason,omitempty"`
}

// Notional is entry price times quantity.
func (p *Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

func (p *Position) mark(price float64) {
	p.PnL = UnrealizedPL(*p, price)
}

func (p *Position) close(price float64, at time.Time, reason CloseReason) {
	p.mark(price)
	exit := price
	exitTime := at
	p.ExitPrice = &exit
	p.ExitTime = &exitTime
	p.CloseReason = reason
	p.Closed = true
}

// Clone returns a deep copy safe to hand to callers.
func (p Position) Clone() Position {
	if p.Target != nil {
		v := *p.Target
		p.Target = &v
	}
	if p.Stop != nil {
		v := *p.Stop
		p.Stop = &v
	}
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		p.ExitPrice = &v
	}
	if p.ExitTime != nil {
		v := *p.ExitTime
		p.ExitTime = &v
	}
	return p
}
