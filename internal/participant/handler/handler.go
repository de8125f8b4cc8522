// Package handler exposes participant administration endpoints, including
// CSV import and export.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acredita/internal/participant/models"
	"acredita/internal/participant/service"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/httputil"
	"acredita/pkg/requestcontext"
)

// Service defines the interface for participant operations.
type Service interface {
	Upsert(ctx context.Context, eventID string, req service.UpsertRequest) (*models.Participant, error)
	Get(ctx context.Context, eventID, dni string) (*models.Participant, error)
	List(ctx context.Context, eventID string) ([]*models.Participant, error)
	Delete(ctx context.Context, eventID, dni string) error
	Reset(ctx context.Context, eventID, dni string) (*models.Participant, error)
	ImportCSV(ctx context.Context, eventID string, r io.Reader) (*service.ImportReport, error)
	ExportCSV(ctx context.Context, eventID string, w io.Writer) error
}

// Handler handles participant endpoints.
type Handler struct {
	participants Service
	logger       *slog.Logger
}

// New creates a new participant Handler.
func New(participants Service, logger *slog.Logger) *Handler {
	return &Handler{participants: participants, logger: logger}
}

// Register registers the participant routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/events/{eventID}/participants", func(r chi.Router) {
		r.Post("/", h.handleUpsert)
		r.Get("/", h.handleList)
		r.Post("/import", h.handleImport)
		r.Get("/export", h.handleExport)
		r.Get("/{dni}", h.handleGet)
		r.Put("/{dni}", h.handleUpsert)
		r.Delete("/{dni}", h.handleDelete)
		r.Post("/{dni}/reset", h.handleReset)
	})
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req service.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if dni := chi.URLParam(r, "dni"); dni != "" {
		req.DNI = dni
	}
	p, err := h.participants.Upsert(ctx, chi.URLParam(r, "eventID"), req)
	if err != nil {
		h.logger.WarnContext(ctx, "participant upsert failed",
			"request_id", requestcontext.RequestID(ctx), "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	participants, err := h.participants.List(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if participants == nil {
		participants = []*models.Participant{}
	}
	httputil.WriteJSON(w, http.StatusOK, participants)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.participants.Get(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "dni"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.participants.Delete(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "dni")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	p, err := h.participants.Reset(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "dni"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	report, err := h.participants.ImportCSV(r.Context(), chi.URLParam(r, "eventID"), r.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	// Buffer the CSV so authorization failures still produce a clean JSON
	// error instead of a half-written download.
	var buf bytes.Buffer
	if err := h.participants.ExportCSV(r.Context(), eventID, &buf); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "participants-"+eventID+".csv"))
	_, _ = buf.WriteTo(w)
}
