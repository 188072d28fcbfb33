package session

import (
	"fmt"
	"time"

	"github.com/rustyeddy/demotrader/activity"
	"github.com/rustyeddy/demotrader/sim"
)

// State is the feed state of a session.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

var stateNames = [...]string{"idle", "running", "paused", "stopped"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Live reports whether the feed timer is registered.
func (s State) Live() bool { return s == Running || s == Paused }

type EventKind string

const (
	EventTick    EventKind = "tick"
	EventOrder   EventKind = "order"
	EventReject  EventKind = "reject"
	EventClose   EventKind = "close"
	EventBalance EventKind = "balance"
	EventState   EventKind = "state"
	EventClear   EventKind = "clear"
	EventLog     EventKind = "log"
)

// Event describes one thing that happened inside a session. Which fields
// are set depends on Kind.
type Event struct {
	Kind       EventKind
	Time       time.Time
	Instrument string
	Price      float64
	OpenPnL    float64
	Tick       uint64
	Indicators map[string]float64

	Position *sim.Position
	Balance  *sim.BalanceChange
	Reason   string
	State    State
	Entry    *activity.Entry
	Err      error
}

// Observer receives session events in the order they happened, after the
// session lock is released. Observe must not call back into the session;
// everything an observer needs is carried on the Event.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
