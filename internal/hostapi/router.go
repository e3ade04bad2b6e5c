// Package hostapi exposes the lifecycle and outcome entry points of a running
// daemon over HTTP, next to its Prometheus metrics.
package hostapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	outcomedto "outcomes/internal/modules/outcome/dto"
	sessiondto "outcomes/internal/modules/session/dto"
	syncjobdto "outcomes/internal/modules/syncjob/dto"
	apperrors "outcomes/internal/platform/errors"
)

type SessionPort interface {
	Foreground(ctx context.Context) (sessiondto.TransitionOutput, error)
	Background(ctx context.Context) (sessiondto.TransitionOutput, error)
	Received(ctx context.Context, id string, wasBackground bool) (sessiondto.ReceivedOutput, error)
	Clicked(ctx context.Context, id string) (sessiondto.TransitionOutput, error)
	State(ctx context.Context) (sessiondto.StateOutput, error)
}

type OutcomePort interface {
	SendOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error)
	SendOutcomeWithValue(ctx context.Context, name string, weight float64) (outcomedto.DeliveryOutput, error)
	SendUniqueOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error)
	SendSavedOutcomes(ctx context.Context) (outcomedto.FlushOutput, error)
	ClearOutcomes(ctx context.Context) error
	Pending(ctx context.Context) ([]outcomedto.EventOutput, error)
}

type JobPort interface {
	RunNow(ctx context.Context) (syncjobdto.RunOutput, error)
	Pending(ctx context.Context) (syncjobdto.JobOutput, error)
}

type Handler struct {
	session  SessionPort
	outcomes OutcomePort
	jobs     JobPort
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func New(session SessionPort, outcomes OutcomePort, jobs JobPort, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{session: session, outcomes: outcomes, jobs: jobs, gatherer: gatherer, logger: logger}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/health"))

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/lifecycle/foreground", h.foreground)
		r.Post("/lifecycle/background", h.background)
		r.Post("/notifications/{id}/received", h.received)
		r.Post("/notifications/{id}/clicked", h.clicked)
		r.Post("/outcomes", h.sendOutcome)
		r.Post("/outcomes/flush", h.flush)
		r.Get("/outcomes/pending", h.pending)
		r.Delete("/outcomes/unique", h.clearUnique)
		r.Post("/jobs/run", h.runJob)
		r.Get("/jobs/pending", h.pendingJob)
	})
	return r
}

type outcomeRequest struct {
	Name   string   `json:"name"`
	Weight *float64 `json:"weight,omitempty"`
	Unique bool     `json:"unique,omitempty"`
}

type receivedRequest struct {
	WasBackground *bool `json:"was_background,omitempty"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	out, err := h.session.State(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) foreground(w http.ResponseWriter, r *http.Request) {
	out, err := h.session.Foreground(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) background(w http.ResponseWriter, r *http.Request) {
	out, err := h.session.Background(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) received(w http.ResponseWriter, r *http.Request) {
	req := receivedRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	wasBackground := true
	if req.WasBackground != nil {
		wasBackground = *req.WasBackground
	}
	out, err := h.session.Received(r.Context(), chi.URLParam(r, "id"), wasBackground)
	h.respond(w, out, err)
}

func (h *Handler) clicked(w http.ResponseWriter, r *http.Request) {
	out, err := h.session.Clicked(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, out, err)
}

func (h *Handler) sendOutcome(w http.ResponseWriter, r *http.Request) {
	req := outcomeRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var (
		out outcomedto.DeliveryOutput
		err error
	)
	switch {
	case req.Unique && req.Weight != nil:
		Error(w, http.StatusBadRequest, "unique outcomes carry no weight")
		return
	case req.Unique:
		out, err = h.outcomes.SendUniqueOutcome(r.Context(), req.Name)
	case req.Weight != nil:
		out, err = h.outcomes.SendOutcomeWithValue(r.Context(), req.Name, *req.Weight)
	default:
		out, err = h.outcomes.SendOutcome(r.Context(), req.Name)
	}
	h.respond(w, out, err)
}

func (h *Handler) flush(w http.ResponseWriter, r *http.Request) {
	out, err := h.outcomes.SendSavedOutcomes(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	out, err := h.outcomes.Pending(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) clearUnique(w http.ResponseWriter, r *http.Request) {
	if err := h.outcomes.ClearOutcomes(r.Context()); err != nil {
		h.respond(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request) {
	out, err := h.jobs.RunNow(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) pendingJob(w http.ResponseWriter, r *http.Request) {
	out, err := h.jobs.Pending(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) respond(w http.ResponseWriter, v any, err error) {
	switch {
	case err == nil:
		JSON(w, http.StatusOK, v)
	case errors.Is(err, apperrors.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrQueueClosed):
		Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("host api request failed", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
