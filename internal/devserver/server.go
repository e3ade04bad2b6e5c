// Package devserver is a local stand-in for the measurement backend. It
// records every accepted payload and can be switched into failure modes so
// the retry path can be exercised by hand or from tests.
package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Mode string

const (
	ModeAccept      Mode = "accept"
	ModeUnavailable Mode = "unavailable"
	ModeReject      Mode = "reject"
)

func (m Mode) Validate() error {
	switch m {
	case ModeAccept, ModeUnavailable, ModeReject:
		return nil
	default:
		return fmt.Errorf("unknown mode %q", m)
	}
}

const (
	RouteOutcomes = "outcomes"
	RouteFocus    = "focus"
)

type Measurement struct {
	AppID      string          `json:"app_id"`
	Route      string          `json:"route"`
	RequestID  string          `json:"request_id"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

type Server struct {
	logger *slog.Logger

	mu       sync.Mutex
	mode     Mode
	received []Measurement
}

func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, mode: ModeAccept}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/apps/{appID}/outcomes/measure", s.record(RouteOutcomes))
	r.Post("/apps/{appID}/sessions/on_focus", s.record(RouteFocus))
	r.Get("/measurements", s.listMeasurements)
	r.Put("/mode", s.putMode)
	return r
}

func (s *Server) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

func (s *Server) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Received returns a copy of accepted measurements, optionally filtered by route.
func (s *Server) Received(route string) []Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Measurement, 0, len(s.received))
	for _, m := range s.received {
		if route == "" || m.Route == route {
			out = append(out, m)
		}
	}
	return out
}

func (s *Server) record(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch s.Mode() {
		case ModeUnavailable:
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"errors": []string{"backend unavailable"}})
			return
		case ModeReject:
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"payload rejected"}})
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"unreadable body"}})
			return
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid json"}})
			return
		}
		if route == RouteOutcomes {
			if name, _ := fields["id"].(string); name == "" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"outcome id is required"}})
				return
			}
		}
		m := Measurement{
			AppID:      chi.URLParam(r, "appID"),
			Route:      route,
			RequestID:  r.Header.Get("X-Request-ID"),
			Body:       json.RawMessage(raw),
			ReceivedAt: time.Now().UTC(),
		}
		s.mu.Lock()
		s.received = append(s.received, m)
		s.mu.Unlock()
		s.logger.Info("measurement received", "route", route, "app_id", m.AppID, "body", string(raw))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) listMeasurements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Received(r.URL.Query().Get("route")))
}

func (s *Server) putMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid json"}})
		return
	}
	if err := body.Mode.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{err.Error()}})
		return
	}
	s.SetMode(body.Mode)
	writeJSON(w, http.StatusOK, map[string]any{"mode": body.Mode})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
