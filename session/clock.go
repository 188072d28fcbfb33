package session

import (
	"sync"
	"time"
)

// Clock schedules the periodic tick callback. cancel stops further calls;
// it is safe to call more than once.
type Clock interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// RealClock fires callbacks from a time.Ticker goroutine.
type RealClock struct{}

func (RealClock) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// ManualClock fires callbacks only when Tick is called, on the caller's
// goroutine. It also keeps a virtual wall clock that advances by the
// registered interval on every tick, so sessions driven by it produce
// deterministic timestamps.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	id    int
	every time.Duration
	fn    func()
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Every(d time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{id: c.seq, every: d, fn: fn}
	c.timers = append(c.timers, t)

	return func() { c.remove(t.id) }
}

func (c *ManualClock) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.timers {
		if t.id == id {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Tick advances virtual time and fires every registered callback once.
// It reports whether any callback ran.
func (c *ManualClock) Tick() bool {
	c.mu.Lock()
	timers := append([]*manualTimer(nil), c.timers...)
	step := time.Second
	if len(timers) > 0 {
		step = timers[0].every
	}
	c.now = c.now.Add(step)
	c.mu.Unlock()

	for _, t := range timers {
		t.fn()
	}
	return len(timers) > 0
}

// Advance runs Tick n times.
func (c *ManualClock) Advance(n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Active is the number of registered callbacks.
func (c *ManualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
