package market

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownSpeed    = errors.New("unknown speed")
	ErrUnknownSide     = errors.New("unknown side")
)

// Strategy scales the instrument volatility used by the price generator.
type Strategy int

// Balanced is the zero value.
const (
	Balanced Strategy = iota
	Conservative
	Aggressive
)

var strategyNames = map[Strategy]string{
	Conservative: "conservative",
	Balanced:     "balanced",
	Aggressive:   "aggressive",
}

// Aggression is the volatility multiplier for s. Always > 0.
func (s Strategy) Aggression() float64 {
	switch s {
	case Conservative:
		return 0.5
	case Aggressive:
		return 2.0
	default:
		return 1.0
	}
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for st, n := range strategyNames {
		if n == name {
			return st, nil
		}
	}
	return Balanced, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Speed is the coarse feed speed selected by the user.
type Speed string

const (
	Slow   Speed = "slow"
	Normal Speed = "normal"
	Fast   Speed = "fast"
)

// Interval is the tick period for the speed. Unknown speeds run at normal.
func (s Speed) Interval() time.Duration {
	switch s {
	case Slow:
		return 2000 * time.Millisecond
	case Fast:
		return 400 * time.Millisecond
	default:
		return 1000 * time.Millisecond
	}
}

func ParseSpeed(s string) (Speed, error) {
	switch sp := Speed(strings.ToLower(strings.TrimSpace(s))); sp {
	case Slow, Normal, Fast:
		return sp, nil
	}
	return Normal, fmt.Errorf("%w: %q", ErrUnknownSpeed, s)
}

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}
