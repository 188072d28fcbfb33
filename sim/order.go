package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/pricing"
)

var ErrInvalidOrder = errors.New("invalid order")

// LevelKind says how a take-profit or stop-loss value is expressed.
type LevelKind string

const (
	LevelNone    LevelKind = ""
	LevelPercent LevelKind = "percent"
	LevelDollar  LevelKind = "dollar"
)

// Level is a take-profit or stop-loss request. It is resolved to an
// absolute price once, when the order is placed.
type Level struct {
	Kind  LevelKind `json:"kind,omitempty"`
	Value float64   `json:"value,omitempty"`
}

func Percent(v float64) Level { return Level{Kind: LevelPercent, Value: v} }
func Dollar(v float64) Level  { return Level{Kind: LevelDollar, Value: v} }

func (l Level) IsSet() bool { return l.Kind != LevelNone }

func ParseLevelKind(s string) (LevelKind, error) {
	switch k := LevelKind(strings.ToLower(strings.TrimSpace(s))); k {
	case LevelNone, LevelPercent, LevelDollar:
		return k, nil
	case "%", "pct":
		return LevelPercent, nil
	case "$", "usd":
		return LevelDollar, nil
	}
	return LevelNone, fmt.Errorf("unknown level kind %q", s)
}

func (l Level) distance(entry float64) float64 {
	if l.Kind == LevelPercent {
		return entry * l.Value / 100
	}
	return l.Value
}

// resolve turns l into an absolute price. favorable selects the side of
// entry a take-profit sits on; stops pass false.
func (l Level) resolve(entry float64, side market.Side, favorable bool) (*float64, error) {
	if !l.IsSet() {
		return nil, nil
	}
	if l.Kind != LevelPercent && l.Kind != LevelDollar {
		return nil, fmt.Errorf("%w: unknown level kind %q", ErrInvalidOrder, l.Kind)
	}
	if l.Value <= 0 {
		return nil, fmt.Errorf("%w: %s level must be positive", ErrInvalidOrder, l.Kind)
	}

	dir := side.Sign()
	if !favorable {
		dir = -dir
	}
	price := pricing.ClampPrice(entry + dir*l.distance(entry))
	return &price, nil
}

// OrderRequest is a manual "place order" action.
type OrderRequest struct {
	Instrument string      `json:"instrument,omitempty"`
	Side       market.Side `json:"side"`
	Quantity   float64     `json:"quantity"`
	TakeProfit Level       `json:"takeProfit,omitempty"`
	StopLoss   Level       `json:"stopLoss,omitempty"`
}

func (r OrderRequest) validate() error {
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidOrder, r.Quantity)
	}
	if r.Side != market.Long && r.Side != market.Short {
		return fmt.Errorf("%w: side must be LONG or SHORT, got %q", ErrInvalidOrder, r.Side)
	}
	return nil
}
