// Package service implements operator account management and login.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"acredita/internal/identity/models"
	"acredita/internal/identity/store"
	"acredita/internal/identity/token"
	"acredita/internal/platform/metrics"
	"acredita/internal/policy"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service manages users and issues access tokens.
type Service struct {
	users   store.Store
	tokens  *token.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(users store.Store, tokens *token.Service, opts ...Option) *Service {
	s := &Service{users: users, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult carries the signed token plus the profile the client renders.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      *models.User `json:"user"`
}

// Login verifies credentials and issues an access token. NotFound and a bad
// password produce the same message so the endpoint does not leak which
// emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "login rejected", "email", email)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := requestcontext.Now(ctx)
	signed, err := s.tokens.Generate(user.UID, user.Role, user.OrganizationID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	s.logger.InfoContext(ctx, "login succeeded", "uid", user.UID, "role", string(user.Role))
	return &LoginResult{
		Token:     signed,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

// ActorFromToken validates an access token and resolves it into the
// ActorContext the middleware attaches to each request.
func (s *Service) ActorFromToken(tokenString string) (requestcontext.ActorContext, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return requestcontext.ActorContext{}, err
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return requestcontext.ActorContext{
		UID:            claims.UID,
		Role:           role,
		OrganizationID: claims.OrganizationID,
	}, nil
}

// CreateUserRequest carries the fields for a new operator account.
type CreateUserRequest struct {
	Email          string  `json:"email"`
	Nombre         string  `json:"nombre"`
	Password       string  `json:"password"`
	Role           id.Role `json:"role"`
	OrganizationID string  `json:"organizationId"`
}

const minPasswordLength = 8

// CreateUser creates an account below the actor's own rank, inside an
// organization the actor may manage.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireCanManageRole(actor, req.Role); err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAccess(actor, req.OrganizationID); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	user, err := models.New(uuid.NewString(), req.Email, req.Nombre, req.Role, req.OrganizationID, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.users.CreateIfEmailFree(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	s.metrics.IncrementUsersCreated()
	s.logger.InfoContext(ctx, "user created",
		"uid", user.UID, "role", string(user.Role), "organization_id", user.OrganizationID, "created_by", actor.UID)
	return user, nil
}

// RegisterInvited creates an account from a redeemed invitation. The
// invitation carries the authorization, so no actor check happens here.
func (s *Service) RegisterInvited(ctx context.Context, email, nombre, password string, role id.Role, organizationID string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	user, err := models.New(uuid.NewString(), email, nombre, role, organizationID, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.users.CreateIfEmailFree(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}
	s.metrics.IncrementUsersCreated()
	s.logger.InfoContext(ctx, "invited user registered", "uid", user.UID, "role", string(user.Role))
	return user, nil
}

// GetUser returns one account, org-scoped.
func (s *Service) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.FindByUID(ctx, uid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := policy.RequireOrgAccess(requestcontext.Actor(ctx), user.OrganizationID); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns the accounts of one organization.
func (s *Service) ListUsers(ctx context.Context, organizationID string) ([]*models.User, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAccess(actor, organizationID); err != nil {
		return nil, err
	}
	users, err := s.users.ListByOrg(ctx, organizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// DeleteUser removes an account the actor outranks. Self-deletion is refused
// so an organization cannot lock itself out by accident.
func (s *Service) DeleteUser(ctx context.Context, uid string) error {
	actor := requestcontext.Actor(ctx)
	if actor.UID == uid {
		return dErrors.New(dErrors.CodeForbidden, "cannot delete your own account")
	}

	user, err := s.users.FindByUID(ctx, uid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := policy.RequireCanManageRole(actor, user.Role); err != nil {
		return err
	}
	if err := policy.RequireOrgAccess(actor, user.OrganizationID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, uid); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	s.logger.InfoContext(ctx, "user deleted", "uid", uid, "deleted_by", actor.UID)
	return nil
}

// Bootstrap ensures a super admin exists so a fresh deployment can log in.
// It is a no-op when the email is already registered.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	user, err := models.New(uuid.NewString(), email, "Super Admin", id.RoleSuperAdmin, "", requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	err = s.users.CreateIfEmailFree(ctx, user)
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap super admin")
	}
	s.logger.InfoContext(ctx, "super admin bootstrapped", "email", email)
	return nil
}
