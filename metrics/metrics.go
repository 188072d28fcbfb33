package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rustyeddy/demotrader/session"
)

// Registry holds the Prometheus metrics for one demo session. It is a
// session.Observer.
type Registry struct {
	reg *prometheus.Registry

	Ticks         prometheus.Counter
	Orders        *prometheus.CounterVec
	Rejected      prometheus.Counter
	Closed        *prometheus.CounterVec
	RealizedPnL   prometheus.Counter
	LogEntries    *prometheus.CounterVec
	Price         *prometheus.GaugeVec
	OpenPnL       prometheus.Gauge
	Balance       prometheus.Gauge
	OpenPositions prometheus.Gauge
	FeedState     *prometheus.GaugeVec
	StateSwitches *prometheus.CounterVec
	Indicator     *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demotrader_ticks_total",
			Help: "Ticks processed by the price feed",
		}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demotrader_orders_total",
			Help: "Orders placed by side",
		}, []string{"side"}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demotrader_orders_rejected_total",
			Help: "Orders rejected as invalid",
		}),
		Closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demotrader_positions_closed_total",
			Help: "Positions closed by reason",
		}, []string{"reason"}),
		RealizedPnL: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demotrader_realized_gains_total",
			Help: "Sum of positive realized P&L",
		}),
		LogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demotrader_log_entries_total",
			Help: "Activity log entries by level",
		}, []string{"level"}),
		Price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "demotrader_price",
			Help: "Live simulated price by instrument",
		}, []string{"instrument"}),
		OpenPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demotrader_open_pnl",
			Help: "Unrealized P&L of open positions",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demotrader_balance",
			Help: "Demo cash balance",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demotrader_open_positions",
			Help: "Open positions",
		}),
		FeedState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "demotrader_feed_state",
			Help: "1 for the current feed state, 0 otherwise",
		}, []string{"state"}),
		StateSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demotrader_state_changes_total",
			Help: "Feed state transitions by target state",
		}, []string{"state"}),
		Indicator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "demotrader_indicator",
			Help: "Price overlay indicator values by name",
		}, []string{"name"}),
	}

	r.reg.MustRegister(
		r.Ticks, r.Orders, r.Rejected, r.Closed, r.RealizedPnL, r.LogEntries,
		r.Price, r.OpenPnL, r.Balance, r.OpenPositions, r.FeedState, r.StateSwitches,
		r.Indicator,
	)
	r.setState(session.Idle)
	return r
}

// Gatherer exposes the registry to promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Observe(e session.Event) {
	switch e.Kind {
	case session.EventTick:
		r.Ticks.Inc()
		r.Price.WithLabelValues(e.Instrument).Set(e.Price)
		r.OpenPnL.Set(e.OpenPnL)
		for name, v := range e.Indicators {
			r.Indicator.WithLabelValues(name).Set(v)
		}

	case session.EventOrder:
		r.Orders.WithLabelValues(string(e.Position.Side)).Inc()
		r.OpenPositions.Inc()

	case session.EventReject:
		r.Rejected.Inc()

	case session.EventClose:
		r.Closed.WithLabelValues(e.Reason).Inc()
		r.OpenPositions.Dec()
		if e.Position.PnL > 0 {
			r.RealizedPnL.Add(e.Position.PnL)
		}

	case session.EventBalance:
		r.Balance.Set(e.Balance.After)

	case session.EventState:
		r.setState(e.State)
		r.StateSwitches.WithLabelValues(e.State.String()).Inc()

	case session.EventClear:
		r.OpenPositions.Set(0)
		r.OpenPnL.Set(0)

	case session.EventLog:
		r.LogEntries.WithLabelValues(string(e.Entry.Level)).Inc()
	}
}

func (r *Registry) setState(st session.State) {
	for _, s := range []session.State{session.Idle, session.Running, session.Paused, session.Stopped} {
		v := 0.0
		if s == st {
			v = 1
		}
		r.FeedState.WithLabelValues(s.String()).Set(v)
	}
}

// Track seeds the balance gauge and subscribes r to s.
func (r *Registry) Track(s *session.Session) {
	r.Balance.Set(s.Balance())
	s.Subscribe(r)
}
