// Package handler exposes audit log read endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"acredita/internal/accesslog"
	"acredita/pkg/platform/httputil"
)

// Service defines the interface for access log reads.
type Service interface {
	ListByEvent(ctx context.Context, eventID string, limit int) ([]accesslog.Entry, error)
	ListByDNI(ctx context.Context, eventID, dni string) ([]accesslog.Entry, error)
}

// Handler handles access log endpoints.
type Handler struct {
	logs   Service
	logger *slog.Logger
}

// New creates a new access log Handler.
func New(logs Service, logger *slog.Logger) *Handler {
	return &Handler{logs: logs, logger: logger}
}

// Register registers the access log routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/events/{eventID}/logs", func(r chi.Router) {
		r.Get("/", h.handleListByEvent)
		r.Get("/{dni}", h.handleListByDNI)
	})
}

func (h *Handler) handleListByEvent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.logs.ListByEvent(r.Context(), chi.URLParam(r, "eventID"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []accesslog.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleListByDNI(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ListByDNI(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "dni"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []accesslog.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
