package pricing

import (
	"math"

	"github.com/rustyeddy/demotrader/market"
	"github.com/shopspring/decimal"
)

const (
	// MinPrice is the floor applied to every generated price.
	MinPrice = 0.01

	DefaultDriftFraction = 0.0004
	DefaultPullFactor    = 0.005
)

// Generator produces the next simulated price for an instrument.
type Generator interface {
	Next(prev float64, inst market.Instrument, aggression float64, r RNG) (float64, RNG)
}

// RandomWalk is a mean-reverting random walk:
//
//	next = prev + drift + noise + (base - prev) * pull
//
// drift is scaled to the instrument base price, noise to volatility,
// aggression and the previous price.
type RandomWalk struct {
	DriftFraction float64
	PullFactor    float64
}

func NewRandomWalk() RandomWalk {
	return RandomWalk{
		DriftFraction: DefaultDriftFraction,
		PullFactor:    DefaultPullFactor,
	}
}

func (w RandomWalk) Next(prev float64, inst market.Instrument, aggression float64, r RNG) (float64, RNG) {
	if prev <= 0 || math.IsNaN(prev) {
		prev = inst.BasePrice
	}

	u1, r := r.Symmetric()
	u2, r := r.Symmetric()

	drift := u1 * inst.BasePrice * w.DriftFraction
	noise := u2 * 2 * inst.Volatility * aggression * prev
	reversion := (inst.BasePrice - prev) * w.PullFactor

	return ClampPrice(prev + drift + noise + reversion), r
}

// ClampPrice floors p at MinPrice and rounds to cents.
func ClampPrice(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < MinPrice {
		return MinPrice
	}
	p = Round2(p)
	if p < MinPrice {
		return MinPrice
	}
	return p
}

// Round2 rounds x to two decimal places, half away from zero.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// Script replays a fixed list of prices, then holds the last one. It
// ignores the instrument and leaves the RNG untouched.
type Script struct {
	Prices []float64
	next   int
}

func (s *Script) Next(prev float64, _ market.Instrument, _ float64, r RNG) (float64, RNG) {
	if len(s.Prices) == 0 {
		return prev, r
	}
	i := s.next
	if i >= len(s.Prices) {
		i = len(s.Prices) - 1
	} else {
		s.next++
	}
	return ClampPrice(s.Prices[i]), r
}
