package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/session"
	"github.com/rustyeddy/demotrader/sim"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

type stateBody struct {
	State session.State `json:"state"`
}

type levelBody struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type orderBody struct {
	Instrument string     `json:"instrument,omitempty"`
	Side       string     `json:"side"`
	Quantity   float64    `json:"quantity"`
	TakeProfit *levelBody `json:"takeProfit,omitempty"`
	StopLoss   *levelBody `json:"stopLoss,omitempty"`
}

func (b orderBody) request() (sim.OrderRequest, error) {
	side, err := market.ParseSide(b.Side)
	if err != nil {
		return sim.OrderRequest{}, err
	}
	req := sim.OrderRequest{Instrument: b.Instrument, Side: side, Quantity: b.Quantity}
	if req.TakeProfit, err = b.TakeProfit.level(); err != nil {
		return sim.OrderRequest{}, fmt.Errorf("takeProfit: %w", err)
	}
	if req.StopLoss, err = b.StopLoss.level(); err != nil {
		return sim.OrderRequest{}, fmt.Errorf("stopLoss: %w", err)
	}
	return req, nil
}

func (l *levelBody) level() (sim.Level, error) {
	if l == nil {
		return sim.Level{}, nil
	}
	kind, err := sim.ParseLevelKind(l.Kind)
	if err != nil {
		return sim.Level{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return sim.Level{Kind: kind, Value: l.Value}, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrInvalidOrder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, market.ErrUnknownInstrument),
		errors.Is(err, market.ErrUnknownStrategy),
		errors.Is(err, market.ErrUnknownSpeed),
		errors.Is(err, market.ErrUnknownSide),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  s.sess.State(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Catalog().List())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	switch action := mux.Vars(r)["action"]; action {
	case "start":
		s.sess.Start()
	case "pause":
		s.sess.Pause()
	case "resume":
		s.sess.Resume()
	case "stop":
		s.sess.Stop()
	case "reset":
		s.sess.Reset()
	default:
		s.writeError(w, fmt.Errorf("%w: unknown feed action %q", errBadRequest, action))
		return
	}
	writeJSON(w, http.StatusOK, stateBody{State: s.sess.State()})
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sess.SwitchInstrument(body.ID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Instrument())
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Strategy string `json:"strategy"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	st, err := market.ParseStrategy(body.Strategy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.sess.SwitchStrategy(st)
	writeJSON(w, http.StatusOK, map[string]any{"strategy": st, "aggression": st.Aggression()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed string `json:"speed"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	sp, err := market.ParseSpeed(body.Speed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sess.SwitchSpeed(sp); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"speed": sp, "intervalMs": sp.Interval().Milliseconds()})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := body.request()
	if err != nil {
		s.writeError(w, err)
		return
	}
	pos, err := s.sess.PlaceOrder(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Positions())
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	closed := s.sess.ClosePosition(id)
	resp := map[string]any{"closed": closed}
	if p, ok := s.sess.Position(id); ok {
		resp["position"] = p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"closed": s.sess.CloseAll()})
}

func (s *Server) handleClearPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"cleared": s.sess.ClearPositions()})
}

func (s *Server) handleExportLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activity-log.txt"`)
	_, _ = w.Write([]byte(s.sess.ExportText()))
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	data, err := s.sess.ExportJSON()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="session.json"`)
	_, _ = w.Write(data)
}

type helloFrame struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	hello, err := json.Marshal(helloFrame{Type: "snapshot", Snapshot: s.sess.Snapshot()})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.serve(w, r, hello)
}
