// Package handler exposes authentication and user administration endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"acredita/internal/identity/models"
	"acredita/internal/identity/service"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/httputil"
	"acredita/pkg/requestcontext"
)

// Service defines the interface for identity operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	CreateUser(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
	ListUsers(ctx context.Context, organizationID string) ([]*models.User, error)
	DeleteUser(ctx context.Context, uid string) error
}

// Handler handles identity endpoints.
type Handler struct {
	identity Service
	logger   *slog.Logger
}

// New creates a new identity Handler.
func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, logger: logger}
}

// RegisterPublic registers the unauthenticated login route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// Register registers the authenticated identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{uid}", h.handleGet)
		r.Delete("/{uid}", h.handleDelete)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx), "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleMe echoes the authenticated actor's profile.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	user, err := h.identity.GetUser(r.Context(), actor.UID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := h.identity.CreateUser(r.Context(), req)
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
	users, err := h.identity.ListUsers(r.Context(), organizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.DeleteUser(r.Context(), chi.URLParam(r, "uid")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
