package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/demotrader/market"
)

var btc = market.Instrument{ID: "BTC_USD", BasePrice: 64250, Volatility: 0.004}

func TestRNGDeterministic(t *testing.T) {
	a, b := NewRNG(42), NewRNG(42)
	for i := 0; i < 1000; i++ {
		var x, y float64
		x, a = a.Float64()
		y, b = b.Float64()
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0.0)
		require.Less(t, x, 1.0)
	}
}

func TestRNGValueSemantics(t *testing.T) {
	r := NewRNG(7)
	first, _ := r.Float64()
	again, _ := r.Float64()
	assert.Equal(t, first, again, "receiver must not advance")

	_, next := r.Float64()
	assert.NotEqual(t, r.State(), next.State())

	s, _ := r.Symmetric()
	assert.Equal(t, first-0.5, s)
}

func TestRNGSeedsDiffer(t *testing.T) {
	x, _ := NewRNG(1).Float64()
	y, _ := NewRNG(2).Float64()
	assert.NotEqual(t, x, y)
}

func TestRandomWalkDeterministic(t *testing.T) {
	w := NewRandomWalk()
	run := func() []float64 {
		r := NewRNG(99)
		p := btc.BasePrice
		out := make([]float64, 0, 200)
		for i := 0; i < 200; i++ {
			p, r = w.Next(p, btc, 1.0, r)
			out = append(out, p)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestRandomWalkStaysPositive(t *testing.T) {
	// Huge volatility and aggression push the walk towards zero often.
	inst := market.Instrument{ID: "PENNY", BasePrice: 0.05, Volatility: 5}
	w := NewRandomWalk()
	r := NewRNG(1234)
	p := inst.BasePrice
	for i := 0; i < 10_000; i++ {
		p, r = w.Next(p, inst, 2.0, r)
		require.GreaterOrEqual(t, p, MinPrice)
		require.Equal(t, Round2(p), p)
	}
}

func TestRandomWalkMeanReverts(t *testing.T) {
	w := RandomWalk{PullFactor: 0.5}
	// With no drift or noise the pull alone halves the gap.
	inst := market.Instrument{ID: "X", BasePrice: 100, Volatility: 0}
	p, _ := w.Next(120, inst, 1, NewRNG(1))
	assert.Equal(t, 110.0, p)
}

func TestClampPrice(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{123.456, 123.46},
		{0.004, MinPrice},
		{-5, MinPrice},
		{math.NaN(), MinPrice},
		{math.Inf(1), MinPrice},
		{0.015, 0.02},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPrice(tt.in), "ClampPrice(%v)", tt.in)
	}
}

func TestScript(t *testing.T) {
	s := &Script{Prices: []float64{101, 102.5}}
	r := NewRNG(5)

	p, r2 := s.Next(100, btc, 1, r)
	assert.Equal(t, 101.0, p)
	assert.Equal(t, r, r2)

	p, _ = s.Next(p, btc, 1, r)
	assert.Equal(t, 102.5, p)
	p, _ = s.Next(p, btc, 1, r)
	assert.Equal(t, 102.5, p, "holds the last price")

	empty := &Script{}
	p, _ = empty.Next(77, btc, 1, r)
	assert.Equal(t, 77.0, p)
}

func TestFixedSeed(t *testing.T) {
	seed := FixedSeed(31)
	assert.Equal(t, uint32(31), seed())
	assert.Equal(t, uint32(31), seed())
}
