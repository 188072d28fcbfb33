package session

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/demotrader/activity"
	"github.com/rustyeddy/demotrader/indicators"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/pricing"
	"github.com/rustyeddy/demotrader/sim"
)

var start = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func testCatalog(t *testing.T) *market.Catalog {
	t.Helper()
	cat, err := market.NewCatalog(
		market.Instrument{ID: "TEST", Name: "Test", BasePrice: 100, Volatility: 0.01},
		market.Instrument{ID: "HALF", Name: "Half", BasePrice: 50, Volatility: 0.01},
	)
	require.NoError(t, err)
	return cat
}

func newTestSession(t *testing.T, gen pricing.Generator, mutate ...func(*Options)) (*Session, *ManualClock) {
	t.Helper()
	logger := zerolog.Nop()
	clock := NewManualClock(start)
	opts := Options{
		Catalog:    testCatalog(t),
		Clock:      clock,
		Generator:  gen,
		Seed:       pricing.FixedSeed(42),
		InfoChance: -1,
		Logger:     &logger,
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s, clock
}

func script(prices ...float64) *pricing.Script {
	return &pricing.Script{Prices: prices}
}

func messages(s *Session) []string {
	var out []string
	for _, e := range s.Logs() {
		out = append(out, e.Message)
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	s, clock := newTestSession(t, nil)

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "TEST", s.Instrument().ID)
	assert.Equal(t, 100.0, s.Price())
	assert.Equal(t, DefaultEndowment, s.Balance())
	assert.Equal(t, market.Balanced, s.Strategy())
	assert.Equal(t, market.Normal, s.Speed())
	assert.Equal(t, []Point{{Label: "09:30:00", Value: 100}}, s.PriceSeries())
	assert.Equal(t, []Point{{Label: "09:30:00", Value: 0}}, s.PnLSeries())
	assert.Empty(t, s.Logs())
	assert.Equal(t, 0, clock.Active())

	_, err := New(Options{Catalog: testCatalog(t), Instrument: "NOPE"})
	assert.ErrorIs(t, err, market.ErrUnknownInstrument)
	_, err = New(Options{Catalog: testCatalog(t), Speed: "warp"})
	assert.ErrorIs(t, err, market.ErrUnknownSpeed)
}

func TestLongTargetScenario(t *testing.T) {
	s, clock := newTestSession(t, script(101, 102.5))
	s.Start()

	pos, err := s.PlaceOrder(sim.OrderRequest{Side: market.Long, Quantity: 10, TakeProfit: sim.Dollar(2)})
	require.NoError(t, err)
	assert.Equal(t, "TEST", pos.Instrument)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, 102.0, *pos.Target)
	assert.Equal(t, 9000.0, s.Balance())

	clock.Tick()
	assert.Equal(t, 101.0, s.Price())
	assert.Equal(t, 10.0, s.OpenPnL())
	assert.Equal(t, 9000.0, s.Balance())

	clock.Tick()
	got, ok := s.Position(pos.ID)
	require.True(t, ok)
	assert.True(t, got.Closed)
	assert.Equal(t, sim.ReasonTarget, got.CloseReason)
	assert.Equal(t, 102.5, *got.ExitPrice)
	assert.Equal(t, start.Add(2*time.Second), *got.ExitTime)
	assert.Equal(t, 25.0, got.PnL)
	assert.Equal(t, 9025.0, s.Balance())
	assert.Equal(t, 0.0, s.OpenPnL())

	logs := messages(s)
	assert.Contains(t, logs, "Closed LONG 10 TEST @ 102.50 (target): P&L +25.00")
	assert.Contains(t, logs, "Balance 9000.00 -> 9025.00")

	// A closed position is never touched again.
	clock.Advance(3)
	again, _ := s.Position(pos.ID)
	assert.Equal(t, got, again)
	assert.Equal(t, 9025.0, s.Balance())
}

func TestShortStopScenario(t *testing.T) {
	s, clock := newTestSession(t, script(51, 53), func(o *Options) { o.Instrument = "HALF" })
	s.Start()

	pos, err := s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 5, StopLoss: sim.Dollar(2)})
	require.NoError(t, err)
	assert.Equal(t, 52.0, *pos.Stop)
	assert.Equal(t, DefaultEndowment, s.Balance(), "short orders are not debited")

	clock.Advance(2)
	got, _ := s.Position(pos.ID)
	assert.True(t, got.Closed)
	assert.Equal(t, sim.ReasonStop, got.CloseReason)
	assert.Equal(t, -15.0, got.PnL)
	assert.Equal(t, 9985.0, s.Balance())

	var closeEntry activity.Entry
	for _, e := range s.Logs() {
		if strings.HasPrefix(e.Message, "Closed SHORT") {
			closeEntry = e
		}
	}
	assert.Equal(t, activity.Error, closeEntry.Level, "losses log at error level")
}

func TestReset(t *testing.T) {
	s, clock := newTestSession(t, script(101, 95, 90))
	s.Start()
	_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Long, Quantity: 10})
	require.NoError(t, err)
	clock.Advance(3)
	require.NotEqual(t, DefaultEndowment, s.Balance())

	s.Reset()

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, DefaultEndowment, s.Balance())
	assert.Empty(t, s.Positions())
	assert.Equal(t, 100.0, s.Price())
	assert.Equal(t, uint64(0), s.Ticks())
	assert.Len(t, s.PriceSeries(), 1)
	assert.Len(t, s.PnLSeries(), 1)
	assert.Equal(t, 0, clock.Active())

	logs := messages(s)
	require.Len(t, logs, 1)
	assert.True(t, strings.HasPrefix(logs[0], "Session reset"), logs[0])

	// The feed can run again after a reset.
	s.Start()
	assert.Equal(t, Running, s.State())
}

func TestIndicatorOverlay(t *testing.T) {
	s, clock := newTestSession(t, script(101, 103, 105), func(o *Options) {
		o.Indicators = []indicators.Indicator{indicators.NewMA(2)}
	})
	s.Start()

	clock.Tick()
	assert.Nil(t, s.Indicators(), "not ready after one price")

	clock.Tick()
	assert.Equal(t, map[string]float64{"SMA(2)": 102}, s.Indicators())
	assert.Equal(t, map[string]float64{"SMA(2)": 102}, s.Snapshot().Indicators)

	clock.Tick()
	assert.Equal(t, 104.0, s.Indicators()["SMA(2)"])

	s.Reset()
	assert.Nil(t, s.Indicators())
	assert.Nil(t, s.Snapshot().Indicators)
}

func TestSeriesAreBounded(t *testing.T) {
	s, clock := newTestSession(t, nil)
	s.Start()
	clock.Advance(200)

	assert.Equal(t, uint64(200), s.Ticks())
	assert.Len(t, s.PriceSeries(), DefaultWindow)
	assert.Len(t, s.PnLSeries(), DefaultWindow)

	last := s.PriceSeries()[DefaultWindow-1]
	assert.Equal(t, s.Price(), last.Value)
	assert.Equal(t, "09:33:20", last.Label)
	for _, p := range s.PriceSeries() {
		assert.GreaterOrEqual(t, p.Value, pricing.MinPrice)
	}
}

func TestSameSeedSamePrices(t *testing.T) {
	a, ca := newTestSession(t, nil)
	b, cb := newTestSession(t, nil)
	a.Start()
	b.Start()
	ca.Advance(50)
	cb.Advance(50)
	assert.Equal(t, a.PriceSeries(), b.PriceSeries())

	c, cc := newTestSession(t, nil, func(o *Options) { o.Seed = pricing.FixedSeed(43) })
	c.Start()
	cc.Advance(50)
	assert.NotEqual(t, a.PriceSeries(), c.PriceSeries())
}

func TestPauseFreezesTicks(t *testing.T) {
	s, clock := newTestSession(t, script(101, 102.5))
	s.Start()
	clock.Tick()
	require.Equal(t, 101.0, s.Price())

	s.Pause()
	assert.Equal(t, Paused, s.State())
	assert.Equal(t, 1, clock.Active(), "timer keeps firing while paused")

	series := s.PriceSeries()
	clock.Advance(5)
	assert.Equal(t, 101.0, s.Price())
	assert.Equal(t, uint64(1), s.Ticks())
	assert.Equal(t, series, s.PriceSeries())

	// Orders are accepted while paused, at the frozen price.
	pos, err := s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 101.0, pos.EntryPrice)

	s.Resume()
	clock.Tick()
	assert.Equal(t, 102.5, s.Price())
	assert.Equal(t, uint64(2), s.Ticks())
}

func TestLifecycleNoops(t *testing.T) {
	s, clock := newTestSession(t, nil)

	s.Pause()
	s.Resume()
	s.Stop()
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Logs())

	s.Start()
	s.Start()
	assert.Equal(t, 1, clock.Active())
	assert.Len(t, s.Logs(), 1)

	s.Resume()
	assert.Equal(t, Running, s.State())

	s.Stop()
	assert.Equal(t, Stopped, s.State())
	assert.Equal(t, 0, clock.Active())
	clock.Advance(3)
	assert.Equal(t, uint64(0), s.Ticks())
}

// spyClock hands out callbacks without ever cancelling them, so a tick
// can be fired after Stop.
type spyClock struct {
	fns []func()
}

func (c *spyClock) Every(d time.Duration, fn func()) func() {
	c.fns = append(c.fns, fn)
	return func() {}
}

func TestStaleTickAfterStop(t *testing.T) {
	spy := &spyClock{}
	s, _ := newTestSession(t, script(101, 102), func(o *Options) {
		o.Clock = spy
		o.Now = func() time.Time { return start }
	})

	s.Start()
	require.Len(t, spy.fns, 1)
	spy.fns[0]()
	assert.Equal(t, 101.0, s.Price())

	s.Stop()
	spy.fns[0]()
	assert.Equal(t, 101.0, s.Price())
	assert.Equal(t, uint64(1), s.Ticks())

	// A restart gets a fresh epoch; the old callback stays dead.
	s.Start()
	require.Len(t, spy.fns, 2)
	spy.fns[0]()
	assert.Equal(t, uint64(1), s.Ticks())
	spy.fns[1]()
	assert.Equal(t, 102.0, s.Price())
}

func TestRejectedOrders(t *testing.T) {
	s, _ := newTestSession(t, nil)

	_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Long, Quantity: 1})
	assert.ErrorIs(t, err, sim.ErrInvalidOrder, "feed not running")

	s.Start()
	tests := []struct {
		name string
		req  sim.OrderRequest
	}{
		{"zero quantity", sim.OrderRequest{Side: market.Long}},
		{"negative quantity", sim.OrderRequest{Side: market.Short, Quantity: -3}},
		{"other instrument", sim.OrderRequest{Instrument: "HALF", Side: market.Long, Quantity: 1}},
		{"negative take profit", sim.OrderRequest{Side: market.Long, Quantity: 1, TakeProfit: sim.Percent(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.PlaceOrder(tt.req)
			assert.ErrorIs(t, err, sim.ErrInvalidOrder)
		})
	}

	assert.Empty(t, s.Positions())
	assert.Equal(t, DefaultEndowment, s.Balance())

	var rejected int
	for _, e := range s.Logs() {
		if e.Level == activity.Error && strings.HasPrefix(e.Message, "Order rejected") {
			rejected++
		}
	}
	assert.Equal(t, 5, rejected)
}

func TestSwitchInstrument(t *testing.T) {
	s, clock := newTestSession(t, script(101, 102, 103))
	s.Start()
	pos, err := s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 2})
	require.NoError(t, err)
	clock.Tick()

	err = s.SwitchInstrument("HALF")
	assert.ErrorIs(t, err, ErrRunning)
	assert.Equal(t, "TEST", s.Instrument().ID)

	s.Stop()
	assert.ErrorIs(t, s.SwitchInstrument("NOPE"), market.ErrUnknownInstrument)
	require.NoError(t, s.SwitchInstrument("HALF"))
	assert.Equal(t, 50.0, s.Price())
	assert.Equal(t, []Point{{Label: "09:30:01", Value: 50}}, s.PriceSeries())

	// The TEST position is frozen and closes at its last mark.
	s.Start()
	clock.Advance(2)
	frozen, _ := s.Position(pos.ID)
	assert.False(t, frozen.Closed)
	assert.Equal(t, 0, s.CloseAll(), "close all only covers the live instrument")

	require.True(t, s.ClosePosition(pos.ID))
	closed, _ := s.Position(pos.ID)
	assert.Equal(t, 101.0, *closed.ExitPrice)
	assert.Equal(t, -2.0, closed.PnL)
	assert.False(t, s.ClosePosition(pos.ID))
}

func TestSwitchStrategyAndSpeed(t *testing.T) {
	s, clock := newTestSession(t, nil)

	s.SwitchStrategy(market.Aggressive)
	assert.Equal(t, market.Aggressive, s.Strategy())

	s.Start()
	require.NoError(t, s.SwitchSpeed(market.Fast))
	assert.Equal(t, market.Fast, s.Speed())
	assert.Equal(t, 1, clock.Active(), "a live feed is rescheduled, not duplicated")

	before := clock.Now()
	clock.Tick()
	assert.Equal(t, 400*time.Millisecond, clock.Now().Sub(before))

	assert.ErrorIs(t, s.SwitchSpeed("warp"), market.ErrUnknownSpeed)
	assert.Equal(t, market.Fast, s.Speed())
}

func TestCloseAllAndClear(t *testing.T) {
	s, clock := newTestSession(t, script(99))
	s.Start()
	for i := 0; i < 3; i++ {
		_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 1})
		require.NoError(t, err)
	}
	clock.Tick()

	assert.Equal(t, 3, s.CloseAll())
	assert.Equal(t, DefaultEndowment+3, s.Balance())
	assert.Equal(t, 0, s.CloseAll())

	_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, s.ClearPositions())
	assert.Empty(t, s.Positions())
	assert.Equal(t, DefaultEndowment+3, s.Balance())
	last := s.PnLSeries()[len(s.PnLSeries())-1]
	assert.Equal(t, 0.0, last.Value)
}

func TestInfoLines(t *testing.T) {
	s, clock := newTestSession(t, nil, func(o *Options) { o.InfoChance = 1 })
	s.Start()
	clock.Advance(4)
	// one start line plus one info line per tick
	assert.Len(t, s.Logs(), 5)
	assert.True(t, strings.HasPrefix(s.Logs()[1].Message, "TEST "))
}

func TestLogCapacity(t *testing.T) {
	s, clock := newTestSession(t, nil, func(o *Options) {
		o.InfoChance = 1
		o.LogCapacity = 10
	})
	s.Start()
	clock.Advance(50)
	assert.Len(t, s.Logs(), 10)
}

func TestObserverOrdering(t *testing.T) {
	s, clock := newTestSession(t, script(103))
	var kinds []EventKind
	s.Subscribe(ObserverFunc(func(e Event) { kinds = append(kinds, e.Kind) }))

	s.Start()
	_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Long, Quantity: 1, TakeProfit: sim.Dollar(2)})
	require.NoError(t, err)
	clock.Tick()
	s.Stop()

	assert.Equal(t, []EventKind{
		EventState, EventLog, // start
		EventLog, EventOrder, EventLog, EventBalance, // order and debit
		EventLog, EventLog, EventClose, EventBalance, EventTick, // closing tick
		EventState, EventLog, // stop
	}, kinds)
}

func TestExportRoundTrip(t *testing.T) {
	s, clock := newTestSession(t, script(101, 102.5, 99))
	s.Start()
	_, err := s.PlaceOrder(sim.OrderRequest{Side: market.Long, Quantity: 10, TakeProfit: sim.Dollar(2)})
	require.NoError(t, err)
	_, err = s.PlaceOrder(sim.OrderRequest{Side: market.Short, Quantity: 1, StopLoss: sim.Percent(5)})
	require.NoError(t, err)
	clock.Advance(3)

	snap := s.Snapshot()
	data, err := snap.MarshalIndent()
	require.NoError(t, err)

	parsed, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap, parsed)

	assert.Contains(t, string(data), `"selectedInstrument": "TEST"`)
	assert.Contains(t, string(data), `"strategy": "balanced"`)
	assert.Contains(t, string(data), `"priceSeries"`)
	assert.Contains(t, string(data), `"pnlSeries"`)

	text := s.ExportText()
	assert.True(t, strings.HasPrefix(text, "[09:30:00] Feed started: TEST at 100.00"), text)
	assert.True(t, strings.HasSuffix(text, "\n"))
	assert.Equal(t, strings.Count(text, "\n"), len(s.Logs()))
}

func TestParseSnapshotInvalid(t *testing.T) {
	_, err := ParseSnapshot([]byte("{not json"))
	assert.Error(t, err)
}
