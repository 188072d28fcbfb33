package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/demotrader/id"
	"github.com/shopspring/decimal"
)

// Fill is the result of opening a position. Debit is set for LONG orders,
// whose notional is taken from the balance.
type Fill struct {
	Position Position
	Debit    *BalanceChange
}

// Closure is a position that just closed and the balance change its
// realized P&L caused.
type Closure struct {
	Position Position
	Balance  BalanceChange
}

// Ledger tracks positions for one session and applies their P&L to an
// Account. It is not safe for concurrent use; the owning session
// serializes access.
type Ledger struct {
	acct      *Account
	positions []*Position
	byID      map[string]*Position
	marks     map[string]float64
	newID     func(time.Time) string
}

func NewLedger(acct *Account) *Ledger {
	return &Ledger{
		acct:  acct,
		byID:  make(map[string]*Position),
		marks: make(map[string]float64),
		newID: id.At,
	}
}

func (l *Ledger) Account() *Account { return l.acct }

// Open validates req and books a new open position at price.
func (l *Ledger) Open(req OrderRequest, price float64, now time.Time) (Fill, error) {
	if err := req.validate(); err != nil {
		return Fill{}, err
	}
	if price <= 0 {
		return Fill{}, fmt.Errorf("%w: no live price for %s", ErrInvalidOrder, req.Instrument)
	}

	target, err := req.TakeProfit.resolve(price, req.Side, true)
	if err != nil {
		return Fill{}, fmt.Errorf("take profit: %w", err)
	}
	stop, err := req.StopLoss.resolve(price, req.Side, false)
	if err != nil {
		return Fill{}, fmt.Errorf("stop loss: %w", err)
	}

	p := &Position{
		ID:         l.newID(now),
		Instrument: req.Instrument,
		Side:       req.Side,
		EntryPrice: price,
		Quantity:   req.Quantity,
		EntryTime:  now,
		Target:     target,
		Stop:       stop,
	}
	l.positions = append(l.positions, p)
	l.byID[p.ID] = p
	l.marks[p.ID] = price

	fill := Fill{Position: p.Clone()}
	if p.Side.Sign() > 0 {
		debit := l.acct.Debit(p.Notional())
		fill.Debit = &debit
	}
	return fill, nil
}

// Evaluate marks every open position on instrument to price and closes
// those whose target or stop is breached. Each position is visited once,
// so it can close at most once per call.
func (l *Ledger) Evaluate(instrument string, price float64, now time.Time) []Closure {
	var closed []Closure
	for _, p := range l.positions {
		if p.Closed || p.Instrument != instrument {
			continue
		}
		p.mark(price)
		l.marks[p.ID] = price

		reason, hit := trigger(p, price)
		if !hit {
			continue
		}
		closed = append(closed, l.closeLocked(p, price, now, reason))
	}
	return closed
}

// Close closes position id at price. Unknown or already closed ids are a
// no-op and report false.
func (l *Ledger) Close(positionID string, price float64, now time.Time, reason CloseReason) (Closure, bool) {
	p, ok := l.byID[positionID]
	if !ok || p.Closed {
		return Closure{}, false
	}
	return l.closeLocked(p, price, now, reason), true
}

// CloseAll closes every open position on instrument at price.
func (l *Ledger) CloseAll(instrument string, price float64, now time.Time, reason CloseReason) []Closure {
	var closed []Closure
	for _, p := range l.positions {
		if p.Closed || p.Instrument != instrument {
			continue
		}
		closed = append(closed, l.closeLocked(p, price, now, reason))
	}
	return closed
}

func (l *Ledger) closeLocked(p *Position, price float64, now time.Time, reason CloseReason) Closure {
	p.close(price, now, reason)
	l.marks[p.ID] = price
	change := l.acct.ApplyRealizedPnL(p.PnL)
	return Closure{Position: p.Clone(), Balance: change}
}

// Clear drops every position, open or closed, without touching the
// balance. It returns how many were dropped.
func (l *Ledger) Clear() int {
	n := len(l.positions)
	l.positions = nil
	l.byID = make(map[string]*Position)
	l.marks = make(map[string]float64)
	return n
}

// Get returns a copy of position id.
func (l *Ledger) Get(positionID string) (Position, bool) {
	p, ok := l.byID[positionID]
	if !ok {
		return Position{}, false
	}
	return p.Clone(), true
}

// LastPrice is the most recent price position id was marked at, or 0
// when the id is unknown.
func (l *Ledger) LastPrice(positionID string) float64 {
	return l.marks[positionID]
}

// Positions returns copies of all positions in creation order.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p.Clone())
	}
	return out
}

func (l *Ledger) OpenCount() int {
	n := 0
	for _, p := range l.positions {
		if !p.Closed {
			n++
		}
	}
	return n
}

// OpenPnL is the summed unrealized P&L of all open positions.
func (l *Ledger) OpenPnL() float64 {
	sum := decimal.Zero
	for _, p := range l.positions {
		if p.Closed {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(p.PnL))
	}
	return sum.Round(2).InexactFloat64()
}
