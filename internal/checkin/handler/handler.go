// Package handler exposes the scan endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acredita/internal/checkin"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/httputil"
	"acredita/pkg/requestcontext"
)

// Scanner runs the check-in pipeline for one payload.
type Scanner interface {
	Scan(ctx context.Context, req checkin.ScanRequest) (*checkin.ScanResult, error)
}

// Handler handles scan endpoints.
type Handler struct {
	scanner Scanner
	logger  *slog.Logger
}

// New creates a new scan Handler.
func New(scanner Scanner, logger *slog.Logger) *Handler {
	return &Handler{scanner: scanner, logger: logger}
}

// Register registers the scan routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/scan", h.handleScan)
}

type scanRequest struct {
	Raw       string `json:"raw"`
	Modo      string `json:"modo"`
	Direccion string `json:"direccion"`
	EventID   string `json:"eventId"`
}

// handleScan runs one scan. Denials are 200 responses: the decision is the
// payload, not a transport failure. Only a concurrently in-flight scan from
// the same device maps onto a non-2xx status.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid scan request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.EventID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "eventId is required"))
		return
	}
	mode, err := id.ParseAccessMode(req.Modo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	direction, err := id.ParseDirection(req.Direccion)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.scanner.Scan(ctx, checkin.ScanRequest{
		Raw:       req.Raw,
		Mode:      mode,
		Direction: direction,
		EventID:   req.EventID,
	})
	if err != nil {
		// The only non-nil error the orchestrator returns is the device
		// guard dropping a duplicate frame.
		httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":             "scan_in_flight",
			"error_description": err.Error(),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
