package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/demotrader/activity"
	"github.com/rustyeddy/demotrader/id"
	"github.com/rustyeddy/demotrader/indicators"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/pricing"
	"github.com/rustyeddy/demotrader/risk"
	"github.com/rustyeddy/demotrader/sim"
)

// ErrRunning is returned for actions that need the feed stopped.
var ErrRunning = errors.New("feed is running")

const (
	DefaultEndowment  = 10_000.0
	DefaultInfoChance = 0.08
)

// Options configures a Session. Zero values select defaults.
type Options struct {
	Catalog     *market.Catalog
	Instrument  string
	Strategy    market.Strategy
	Speed       market.Speed
	Endowment   float64
	Window      int
	LogCapacity int

	// InfoChance is the probability that a tick writes an informational
	// log line. Negative disables them.
	InfoChance float64

	// Indicators are chart overlays fed with every generated price.
	Indicators []indicators.Indicator

	Clock     Clock
	Generator pricing.Generator
	Seed      pricing.SeedFunc
	Now       func() time.Time
	Logger    *zerolog.Logger
}

func (o *Options) defaults() {
	if o.Catalog == nil {
		o.Catalog = market.DefaultCatalog()
	}
	if o.Instrument == "" {
		o.Instrument = o.Catalog.First().ID
	}
	if o.Speed == "" {
		o.Speed = market.Normal
	}
	if o.Endowment <= 0 {
		o.Endowment = DefaultEndowment
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.LogCapacity <= 0 {
		o.LogCapacity = activity.DefaultCapacity
	}
	if o.InfoChance == 0 {
		o.InfoChance = DefaultInfoChance
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Generator == nil {
		o.Generator = pricing.NewRandomWalk()
	}
	if o.Seed == nil {
		o.Seed = pricing.TimeSeed
	}
	if o.Now == nil {
		if mc, ok := o.Clock.(*ManualClock); ok {
			o.Now = mc.Now
		} else {
			o.Now = time.Now
		}
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
}

// Session is one demo trading simulator. All state is owned by the
// session and every method is serialized behind its mutex, so the tick
// callback and user actions never interleave.
type Session struct {
	mu sync.Mutex
	// notify keeps observer delivery in mutation order.
	notify sync.Mutex

	opts   Options
	logger zerolog.Logger

	inst     market.Instrument
	strategy market.Strategy
	speed    market.Speed

	price float64
	rng   pricing.RNG
	ticks uint64

	acct    *sim.Account
	ledger  *sim.Ledger
	log     *activity.Log
	prices  *Series
	pnl     *Series
	overlay *indicators.Set

	state  State
	epoch  uint64
	cancel func()

	observers []Observer
	pending   []Event
}

func New(opts Options) (*Session, error) {
	opts.defaults()

	inst, err := opts.Catalog.Lookup(opts.Instrument)
	if err != nil {
		return nil, err
	}
	if _, err := market.ParseSpeed(string(opts.Speed)); err != nil {
		return nil, err
	}

	acct := sim.NewAccount(opts.Endowment)
	s := &Session{
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "session").Logger(),
		inst:     inst,
		strategy: opts.Strategy,
		speed:    opts.Speed,
		acct:     acct,
		ledger:   sim.NewLedger(acct),
		log:      activity.NewLog(opts.LogCapacity),
		prices:   NewSeries(opts.Window),
		pnl:      NewSeries(opts.Window),
		overlay:  indicators.NewSet(opts.Indicators...),
	}
	s.reseedLocked()
	return s, nil
}

// Subscribe registers o for all future events.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// do runs fn under the session lock, then delivers the events fn queued.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	observers := s.observers
	s.notify.Lock()
	s.mu.Unlock()

	defer s.notify.Unlock()
	for _, e := range events {
		for _, o := range observers {
			o.Observe(e)
		}
	}
	return err
}

func (s *Session) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = s.opts.Now()
	}
	s.pending = append(s.pending, e)
}

func (s *Session) logf(level activity.Level, format string, args ...any) {
	e := s.log.Appendf(s.opts.Now(), level, format, args...)
	s.emit(Event{Kind: EventLog, Time: e.Time, Entry: &e})
}

func (s *Session) setState(st State) {
	s.state = st
	s.emit(Event{Kind: EventState, State: st, Instrument: s.inst.ID})
}

// reseedLocked draws a fresh seed, moves the live price back to the
// instrument baseline and resets both chart series.
func (s *Session) reseedLocked() {
	s.rng = pricing.NewRNG(s.opts.Seed())
	s.price = s.inst.BasePrice
	s.ticks = 0
	s.overlay.Reset()
	label := s.opts.Now().Format("15:04:05")
	s.prices.Reset(Point{Label: label, Value: s.price})
	s.pnl.Reset(Point{Label: label, Value: s.ledger.OpenPnL()})
}

// Start begins the feed. Starting a live feed is a no-op.
func (s *Session) Start() {
	_ = s.do(func() error {
		if s.state.Live() {
			return nil
		}
		s.scheduleLocked()
		s.setState(Running)
		s.logf(activity.Success, "Feed started: %s at %.2f (%s, %s)",
			s.inst.ID, s.price, s.strategy, s.speed)
		s.logger.Info().Str("instrument", s.inst.ID).Float64("price", s.price).
			Str("strategy", s.strategy.String()).Str("speed", string(s.speed)).Msg("feed started")
		return nil
	})
}

// scheduleLocked registers a tick callback bound to a new epoch. Callbacks
// from older epochs find a mismatched epoch and do nothing, which covers a
// timer that fires while Stop is cancelling it.
func (s *Session) scheduleLocked() {
	s.unscheduleLocked()
	s.epoch++
	epoch := s.epoch
	s.cancel = s.opts.Clock.Every(s.speed.Interval(), func() { s.tick(epoch) })
}

func (s *Session) unscheduleLocked() {
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Pause suspends tick effects. The timer keeps firing.
func (s *Session) Pause() {
	_ = s.do(func() error {
		if s.state != Running {
			return nil
		}
		s.setState(Paused)
		s.logf(activity.Info, "Feed paused at %.2f", s.price)
		s.logger.Info().Float64("price", s.price).Msg("feed paused")
		return nil
	})
}

func (s *Session) Resume() {
	_ = s.do(func() error {
		if s.state != Paused {
			return nil
		}
		s.setState(Running)
		s.logf(activity.Info, "Feed resumed at %.2f", s.price)
		s.logger.Info().Float64("price", s.price).Msg("feed resumed")
		return nil
	})
}

// Stop cancels the timer. No tick effect happens after Stop returns.
func (s *Session) Stop() {
	_ = s.do(func() error {
		if !s.state.Live() {
			return nil
		}
		s.unscheduleLocked()
		s.setState(Stopped)
		s.logf(activity.Info, "Feed stopped at %.2f after %d ticks", s.price, s.ticks)
		s.logger.Info().Float64("price", s.price).Uint64("ticks", s.ticks).Msg("feed stopped")
		return nil
	})
}

// Reset stops the feed, drops all positions and log entries, restores the
// initial balance and reseeds the price at the instrument baseline.
func (s *Session) Reset() {
	_ = s.do(func() error {
		s.unscheduleLocked()
		dropped := s.ledger.Clear()
		before := s.acct.Balance()
		s.acct.Reset(s.opts.Endowment)
		s.log.Clear()
		s.reseedLocked()
		s.setState(Idle)
		s.emit(Event{Kind: EventClear, Instrument: s.inst.ID})
		s.emit(Event{Kind: EventBalance, Balance: &sim.BalanceChange{Before: before, After: s.acct.Balance()}, Reason: "reset"})
		s.logf(activity.Info, "Session reset: balance %.2f, %s at %.2f",
			s.acct.Balance(), s.inst.ID, s.price)
		s.logger.Info().Int("dropped", dropped).Float64("balance", s.acct.Balance()).Msg("session reset")
		return nil
	})
}

// SwitchInstrument selects a new instrument. The feed must not be live.
// Positions on the previous instrument are kept but no longer evaluated.
func (s *Session) SwitchInstrument(instrumentID string) error {
	return s.do(func() error {
		if s.state.Live() {
			return fmt.Errorf("switch instrument: %w", ErrRunning)
		}
		inst, err := s.opts.Catalog.Lookup(instrumentID)
		if err != nil {
			return err
		}
		prev := s.inst.ID
		s.inst = inst
		s.reseedLocked()
		s.logf(activity.Info, "Instrument switched %s -> %s at %.2f", prev, inst.ID, s.price)
		s.logger.Info().Str("from", prev).Str("to", inst.ID).Msg("instrument switched")
		return nil
	})
}

func (s *Session) SwitchStrategy(st market.Strategy) {
	_ = s.do(func() error {
		if st == s.strategy {
			return nil
		}
		s.strategy = st
		s.logf(activity.Info, "Strategy set to %s (aggression x%.1f)", st, st.Aggression())
		return nil
	})
}

// SwitchSpeed changes the tick interval, rescheduling a live feed.
func (s *Session) SwitchSpeed(sp market.Speed) error {
	if _, err := market.ParseSpeed(string(sp)); err != nil {
		return err
	}
	return s.do(func() error {
		if sp == s.speed {
			return nil
		}
		s.speed = sp
		if s.state.Live() {
			s.scheduleLocked()
		}
		s.logf(activity.Info, "Speed set to %s (%s)", sp, sp.Interval())
		return nil
	})
}

func (s *Session) tick(epoch uint64) {
	_ = s.do(func() error {
		if epoch != s.epoch || s.state != Running {
			return nil
		}
		s.tickLocked()
		return nil
	})
}

func (s *Session) tickLocked() {
	now := s.opts.Now()
	label := now.Format("15:04:05")

	price, rng := s.opts.Generator.Next(s.price, s.inst, s.strategy.Aggression(), s.rng)
	s.price, s.rng = price, rng
	s.ticks++
	s.prices.Add(Point{Label: label, Value: price})
	s.overlay.Update(price)

	for _, c := range s.ledger.Evaluate(s.inst.ID, price, now) {
		s.recordClosureLocked(c, now)
	}

	openPnL := s.ledger.OpenPnL()
	s.pnl.Add(Point{Label: label, Value: openPnL})

	var u float64
	u, s.rng = s.rng.Float64()
	if u < s.opts.InfoChance {
		s.logf(activity.Info, "%s %.2f | open positions %d | open P&L %+.2f",
			s.inst.ID, price, s.ledger.OpenCount(), openPnL)
	}

	s.emit(Event{
		Kind:       EventTick,
		Time:       now,
		Instrument: s.inst.ID,
		Price:      price,
		OpenPnL:    openPnL,
		Tick:       s.ticks,
		Indicators: s.overlay.Values(),
	})
}

func (s *Session) recordClosureLocked(c sim.Closure, now time.Time) {
	p := c.Position
	level := activity.Success
	if p.PnL < 0 {
		level = activity.Error
	}
	s.logf(level, "Closed %s %g %s @ %.2f (%s): P&L %+.2f",
		p.Side, p.Quantity, p.Instrument, *p.ExitPrice, p.CloseReason, p.PnL)
	s.logf(activity.Info, "Balance %.2f -> %.2f", c.Balance.Before, c.Balance.After)

	s.emit(Event{Kind: EventClose, Time: now, Instrument: p.Instrument, Position: &p, Reason: string(p.CloseReason)})
	bal := c.Balance
	s.emit(Event{Kind: EventBalance, Time: now, Balance: &bal, Reason: "close " + id.Short(p.ID)})

	s.logger.Debug().Str("position", p.ID).Str("reason", string(p.CloseReason)).
		Float64("exit", *p.ExitPrice).Float64("pnl", p.PnL).Msg("position closed")
}

// PlaceOrder opens a position at the live price. It fails with
// sim.ErrInvalidOrder when the feed is not live, the quantity is not
// positive, or there is no live price for the requested instrument.
func (s *Session) PlaceOrder(req sim.OrderRequest) (sim.Position, error) {
	var pos sim.Position
	err := s.do(func() error {
		if req.Instrument == "" {
			req.Instrument = s.inst.ID
		}
		now := s.opts.Now()

		var err error
		switch {
		case !s.state.Live():
			err = fmt.Errorf("%w: feed is not running", sim.ErrInvalidOrder)
		case req.Instrument != s.inst.ID:
			err = fmt.Errorf("%w: no live price for %s", sim.ErrInvalidOrder, req.Instrument)
		}

		var fill sim.Fill
		if err == nil {
			fill, err = s.ledger.Open(req, s.price, now)
		}
		if err != nil {
			s.logf(activity.Error, "Order rejected: %v", err)
			s.emit(Event{Kind: EventReject, Time: now, Instrument: req.Instrument, Err: err})
			s.logger.Warn().Err(err).Str("instrument", req.Instrument).Msg("order rejected")
			return err
		}

		pos = fill.Position
		s.logf(activity.Success, "Opened %s %g %s @ %.2f%s",
			pos.Side, pos.Quantity, pos.Instrument, pos.EntryPrice, bracketText(pos, s.acct.Balance()))
		s.emit(Event{Kind: EventOrder, Time: now, Instrument: pos.Instrument, Position: &pos})

		if fill.Debit != nil {
			d := *fill.Debit
			s.logf(activity.Info, "Balance %.2f -> %.2f", d.Before, d.After)
			s.emit(Event{Kind: EventBalance, Time: now, Balance: &d, Reason: "open " + id.Short(pos.ID)})
		}

		s.logger.Info().Str("position", pos.ID).Str("side", string(pos.Side)).
			Float64("quantity", pos.Quantity).Float64("entry", pos.EntryPrice).Msg("order placed")
		return nil
	})
	return pos, err
}

func bracketText(p sim.Position, balance float64) string {
	if p.Target == nil && p.Stop == nil {
		return ""
	}
	out := ""
	if p.Target != nil {
		out += fmt.Sprintf(" TP %.2f", *p.Target)
	}
	if p.Stop != nil {
		out += fmt.Sprintf(" SL %.2f", *p.Stop)
	}
	b := risk.Assess(p.Quantity, p.EntryPrice, p.Target, p.Stop, balance)
	if b.RR > 0 {
		out += fmt.Sprintf(" R:R %.2f", b.RR)
	}
	return " |" + out
}

// ClosePosition closes a position at the live price. Unknown and already
// closed ids are ignored. Positions on a frozen instrument close at their
// last evaluated price.
func (s *Session) ClosePosition(positionID string) bool {
	var closed bool
	_ = s.do(func() error {
		p, ok := s.ledger.Get(positionID)
		if !ok || p.Closed {
			return nil
		}
		price := s.price
		if p.Instrument != s.inst.ID {
			price = s.ledger.LastPrice(positionID)
		}
		now := s.opts.Now()
		c, ok := s.ledger.Close(positionID, price, now, sim.ReasonManual)
		if ok {
			s.recordClosureLocked(c, now)
			closed = true
		}
		return nil
	})
	return closed
}

// CloseAll closes every open position on the active instrument at the
// live price and returns how many closed.
func (s *Session) CloseAll() int {
	var n int
	_ = s.do(func() error {
		now := s.opts.Now()
		closures := s.ledger.CloseAll(s.inst.ID, s.price, now, sim.ReasonManual)
		for _, c := range closures {
			s.recordClosureLocked(c, now)
		}
		n = len(closures)
		return nil
	})
	return n
}

// ClearPositions drops every position without realizing P&L.
func (s *Session) ClearPositions() int {
	var n int
	_ = s.do(func() error {
		n = s.ledger.Clear()
		s.pnl.Add(Point{Label: s.opts.Now().Format("15:04:05"), Value: 0})
		s.logf(activity.Info, "Cleared %d positions", n)
		s.emit(Event{Kind: EventClear, Instrument: s.inst.ID})
		return nil
	})
	return n
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Price() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price
}

func (s *Session) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.Balance()
}

func (s *Session) Instrument() market.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst
}

func (s *Session) Strategy() market.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

func (s *Session) Speed() market.Speed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Session) Positions() []sim.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Positions()
}

func (s *Session) Position(positionID string) (sim.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(positionID)
}

func (s *Session) OpenPnL() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.OpenPnL()
}

func (s *Session) Logs() []activity.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

func (s *Session) PriceSeries() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Points()
}

func (s *Session) PnLSeries() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pnl.Points()
}

// Indicators returns the ready overlay values keyed by indicator name.
func (s *Session) Indicators() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Values()
}

func (s *Session) Catalog() *market.Catalog { return s.opts.Catalog }
