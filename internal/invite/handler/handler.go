// Package handler exposes invitation endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	identitymodels "acredita/internal/identity/models"
	"acredita/internal/invite/models"
	"acredita/internal/invite/service"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/httputil"
	"acredita/pkg/requestcontext"
)

// Service defines the interface for invitation operations.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Invitation, error)
	Accept(ctx context.Context, req service.AcceptRequest) (*identitymodels.User, error)
	List(ctx context.Context, organizationID string) ([]*models.Invitation, error)
	Revoke(ctx context.Context, organizationID, invID string) error
}

// Handler handles invitation endpoints.
type Handler struct {
	invitations Service
	logger      *slog.Logger
}

// New creates a new invitation Handler.
func New(invitations Service, logger *slog.Logger) *Handler {
	return &Handler{invitations: invitations, logger: logger}
}

// RegisterPublic registers the unauthenticated accept route: the recipient
// has no account yet, the token is the credential.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/invitations/accept", h.handleAccept)
}

// Register registers the authenticated invitation routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/invitations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Delete("/{invID}", h.handleRevoke)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = requestcontext.Actor(ctx).OrganizationID
	}
	inv, err := h.invitations.Create(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "invitation create failed",
			"request_id", requestcontext.RequestID(ctx), "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req service.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := h.invitations.Accept(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	organizationID := r.URL.Query().Get("organizationId")
	if organizationID == "" {
		organizationID = requestcontext.Actor(r.Context()).OrganizationID
	}
	invitations, err := h.invitations.List(r.Context(), organizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if invitations == nil {
		invitations = []*models.Invitation{}
	}
	httputil.WriteJSON(w, http.StatusOK, invitations)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	organizationID := r.URL.Query().Get("organizationId")
	if organizationID == "" {
		organizationID = requestcontext.Actor(r.Context()).OrganizationID
	}
	if err := h.invitations.Revoke(r.Context(), organizationID, chi.URLParam(r, "invID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
