package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rustyeddy/demotrader/activity"
	"github.com/rustyeddy/demotrader/session"
	"github.com/rustyeddy/demotrader/sim"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Frame is one websocket message pushed to dashboard clients.
type Frame struct {
	Type       string             `json:"type"`
	Time       time.Time          `json:"time"`
	Instrument string             `json:"instrument,omitempty"`
	Price      float64            `json:"price,omitempty"`
	OpenPnL    float64            `json:"openPnl,omitempty"`
	Tick       uint64             `json:"tick,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Position   *sim.Position      `json:"position,omitempty"`
	Balance    *float64           `json:"balance,omitempty"`
	State      string             `json:"state,omitempty"`
	Log        *activity.Entry    `json:"log,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func frameFor(e session.Event) Frame {
	f := Frame{
		Type:       string(e.Kind),
		Time:       e.Time,
		Instrument: e.Instrument,
		Price:      e.Price,
		OpenPnL:    e.OpenPnL,
		Tick:       e.Tick,
		Indicators: e.Indicators,
		Position:   e.Position,
		Log:        e.Entry,
	}
	if e.Balance != nil {
		after := e.Balance.After
		f.Balance = &after
	}
	if e.Kind == session.EventState {
		f.State = e.State.String()
	}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	return f
}

type client struct {
	send chan []byte
}

// Hub fans session events out to websocket clients. Slow clients miss
// frames rather than stall the session.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Observe(e session.Event) {
	msg, err := json.Marshal(frameFor(e))
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(e.Kind)).Msg("encode frame")
		return
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug().Msg("client buffer full, frame dropped")
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// serve upgrades the request and streams frames until the client goes
// away. hello is queued ahead of any event frames.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, hello []byte) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{send: make(chan []byte, clientBuffer)}
	c.send <- hello
	h.add(c)
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("client connected")

	go h.writeLoop(conn, c)
	h.readLoop(conn, c)
}

func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	defer func() {
		h.remove(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
