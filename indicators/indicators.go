// Package indicators provides streaming overlays computed on the live price.
package indicators

import (
	"fmt"
	"strconv"
	"strings"
)

// Indicator computes a single streaming value from prices.
// It is deterministic, so a seeded session always yields the same overlay.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next price.
	Update(price float64)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before warmup.
	Value() float64
}

// Set updates a group of indicators together. It is not safe for
// concurrent use.
type Set struct {
	items []Indicator
}

func NewSet(items ...Indicator) *Set {
	return &Set{items: items}
}

func (s *Set) Len() int { return len(s.items) }

func (s *Set) Update(price float64) {
	for _, ind := range s.items {
		ind.Update(price)
	}
}

func (s *Set) Reset() {
	for _, ind := range s.items {
		ind.Reset()
	}
}

// Values returns the ready indicators keyed by name, or nil when none are
// ready.
func (s *Set) Values() map[string]float64 {
	var out map[string]float64
	for _, ind := range s.items {
		if !ind.Ready() {
			continue
		}
		if out == nil {
			out = make(map[string]float64, len(s.items))
		}
		out[ind.Name()] = ind.Value()
	}
	return out
}

// Parse builds an indicator from "kind:period", e.g. "sma:20" or "ema:9".
func Parse(def string) (Indicator, error) {
	kind, rawPeriod, ok := strings.Cut(strings.ToLower(strings.TrimSpace(def)), ":")
	if !ok {
		return nil, fmt.Errorf("indicator %q: want kind:period", def)
	}
	period, err := strconv.Atoi(rawPeriod)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("indicator %q: period must be a positive integer", def)
	}

	switch kind {
	case "sma", "ma":
		return NewMA(period), nil
	case "ema":
		return NewEMA(period), nil
	}
	return nil, fmt.Errorf("indicator %q: unknown kind %q", def, kind)
}

// ParseAll parses every definition and rejects duplicate names.
func ParseAll(defs []string) ([]Indicator, error) {
	out := make([]Indicator, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		ind, err := Parse(def)
		if err != nil {
			return nil, err
		}
		if seen[ind.Name()] {
			return nil, fmt.Errorf("duplicate indicator %s", ind.Name())
		}
		seen[ind.Name()] = true
		out = append(out, ind)
	}
	return out, nil
}
