// Package handler exposes event lifecycle endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acredita/internal/event/models"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/httputil"
	pstrings "acredita/pkg/platform/strings"
	"acredita/pkg/requestcontext"
)

// Service defines the interface for event operations.
type Service interface {
	Create(ctx context.Context, nombre string, modos []id.AccessMode) (*models.Event, error)
	Get(ctx context.Context, eventID string) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Transition(ctx context.Context, eventID string, next models.Status) (*models.Event, error)
	Update(ctx context.Context, eventID, nombre string, modos []id.AccessMode) (*models.Event, error)
	Delete(ctx context.Context, eventID string, cascadeLogs bool) error
	Stats(ctx context.Context, eventID string) (participants int, scans int, err error)
}

// Handler handles event endpoints.
type Handler struct {
	events Service
	logger *slog.Logger
}

// New creates a new event Handler.
func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{eventID}", h.handleGet)
		r.Put("/{eventID}", h.handleUpdate)
		r.Delete("/{eventID}", h.handleDelete)
		r.Post("/{eventID}/transition", h.handleTransition)
		r.Get("/{eventID}/stats", h.handleStats)
	})
}

type eventRequest struct {
	Nombre string   `json:"nombre"`
	Modos  []string `json:"modos"`
}

func parseModes(raw []string) ([]id.AccessMode, error) {
	raw = pstrings.DedupeAndTrimLower(raw)
	modos := make([]id.AccessMode, 0, len(raw))
	for _, m := range raw {
		mode, err := id.ParseAccessMode(m)
		if err != nil {
			return nil, err
		}
		modos = append(modos, mode)
	}
	return modos, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	modos, err := parseModes(req.Modos)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Create(ctx, req.Nombre, modos)
	if err != nil {
		h.logger.WarnContext(ctx, "event create failed",
			"request_id", requestcontext.RequestID(ctx), "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	modos, err := parseModes(req.Modos)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Update(r.Context(), chi.URLParam(r, "eventID"), req.Nombre, modos)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	cascadeLogs := r.URL.Query().Get("cascadeLogs") == "true"
	if err := h.events.Delete(r.Context(), chi.URLParam(r, "eventID"), cascadeLogs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	next, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.Transition(r.Context(), chi.URLParam(r, "eventID"), next)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	participants, scans, err := h.events.Stats(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"participants": participants,
		"scans":        scans,
	})
}
