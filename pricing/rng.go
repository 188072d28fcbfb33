package pricing

import "time"

// RNG is the state of a small 32-bit pseudo-random generator (mulberry32).
// Methods never mutate the receiver; they return the advanced state, so a
// session can snapshot, replay or fork a sequence by copying the value.
type RNG struct {
	state uint32
}

func NewRNG(seed uint32) RNG {
	return RNG{state: seed}
}

// Float64 returns a value in [0, 1) and the next state.
func (r RNG) Float64() (float64, RNG) {
	s := r.state + 0x6D2B79F5
	t := s
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	t ^= t >> 14
	return float64(t) / 4294967296.0, RNG{state: s}
}

// Symmetric returns a value in [-0.5, 0.5) and the next state.
func (r RNG) Symmetric() (float64, RNG) {
	u, next := r.Float64()
	return u - 0.5, next
}

// State exposes the raw generator state, for diagnostics only.
func (r RNG) State() uint32 { return r.state }

// SeedFunc produces a fresh seed each time a session is reseeded.
type SeedFunc func() uint32

// TimeSeed derives a seed from the wall clock so successive sessions differ.
func TimeSeed() uint32 {
	n := time.Now().UnixNano()
	return uint32(n) ^ uint32(n>>32)
}

// FixedSeed always returns seed. Used by tests and reproducible runs.
func FixedSeed(seed uint32) SeedFunc {
	return func() uint32 { return seed }
}
