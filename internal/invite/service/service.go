// Package service implements the invitation flow: admins invite by email,
// recipients redeem the token to create their account.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"text/template"
	"time"

	identitymodels "acredita/internal/identity/models"
	"acredita/internal/invite/models"
	"acredita/internal/invite/store"
	"acredita/internal/policy"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/email"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"

	"github.com/google/uuid"
)

// Sender delivers the rendered invitation message. Deployments without an
// outbound mail relay use LogSender.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes invitations to the structured log instead of a mailbox.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "invitation message", "to", to, "subject", subject, "body", body)
	return nil
}

// UserRegistrar creates the account when an invitation is redeemed. The
// invitation itself is the authorization, so no actor check applies here.
type UserRegistrar interface {
	RegisterInvited(ctx context.Context, email, nombre, password string, role id.Role, organizationID string) (*identitymodels.User, error)
}

var messageTemplate = template.Must(template.New("invitation").Parse(
	`Hola {{.Nombre}},

{{.InvitedBy}} te ha invitado como {{.Role}}. La invitación caduca el {{.ExpiresAt}}.

Acepta con este código: {{.Token}}
`))

const defaultTTL = 72 * time.Hour

// Service manages invitations.
type Service struct {
	invitations store.Store
	registrar   UserRegistrar
	sender      Sender
	ttl         time.Duration
	logger      *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithSender(sender Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// New constructs a Service.
func New(invitations store.Store, registrar UserRegistrar, opts ...Option) *Service {
	s := &Service{
		invitations: invitations,
		registrar:   registrar,
		ttl:         defaultTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = LogSender{Logger: s.logger}
	}
	return s
}

// CreateRequest carries the fields for a new invitation.
type CreateRequest struct {
	Email          string  `json:"email"`
	Role           id.Role `json:"role"`
	OrganizationID string  `json:"organizationId"`
}

// Create issues an invitation for a role below the actor's own rank and
// sends the rendered message.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Invitation, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireCanManageRole(actor, req.Role); err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAccess(actor, req.OrganizationID); err != nil {
		return nil, err
	}

	inv, err := models.New(uuid.NewString(), newToken(), req.Email, req.Role,
		req.OrganizationID, actor.UID, requestcontext.Now(ctx), s.ttl)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a pending invitation for this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save invitation")
	}

	if err := s.send(ctx, inv); err != nil {
		s.logger.WarnContext(ctx, "invitation message not delivered", "email", inv.Email, "error", err)
	}
	s.logger.InfoContext(ctx, "invitation created",
		"invitation_id", inv.ID, "role", string(inv.Role), "organization_id", inv.OrganizationID)
	return inv, nil
}

func (s *Service) send(ctx context.Context, inv *models.Invitation) error {
	first, _ := email.DeriveNameFromEmail(inv.Email)
	var body strings.Builder
	err := messageTemplate.Execute(&body, map[string]string{
		"Nombre":    first,
		"InvitedBy": inv.InvitedBy,
		"Role":      string(inv.Role),
		"ExpiresAt": inv.ExpiresAt.Format("02/01/2006 15:04"),
		"Token":     inv.Token,
	})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, inv.Email, "Invitación a acredita", body.String())
}

// AcceptRequest redeems an invitation token.
type AcceptRequest struct {
	Token    string `json:"token"`
	Nombre   string `json:"nombre"`
	Password string `json:"password"`
}

// Accept redeems a pending, unexpired invitation and creates the account.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (*identitymodels.User, error) {
	if req.Token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "token is required")
	}

	inv, err := s.invitations.FindByToken(ctx, req.Token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "invitation not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invitation")
	}
	if inv.Accepted() {
		return nil, dErrors.New(dErrors.CodeConflict, "invitation already accepted")
	}
	if inv.Expired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invitation has expired")
	}

	user, err := s.registrar.RegisterInvited(ctx, inv.Email, req.Nombre, req.Password, inv.Role, inv.OrganizationID)
	if err != nil {
		return nil, err
	}

	if err := s.invitations.MarkAccepted(ctx, inv.ID, requestcontext.Now(ctx)); err != nil {
		s.logger.WarnContext(ctx, "invitation not marked accepted", "invitation_id", inv.ID, "error", err)
	}
	s.logger.InfoContext(ctx, "invitation accepted", "invitation_id", inv.ID, "uid", user.UID)
	return user, nil
}

// List returns an organization's invitations.
func (s *Service) List(ctx context.Context, organizationID string) ([]*models.Invitation, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAccess(actor, organizationID); err != nil {
		return nil, err
	}
	out, err := s.invitations.ListByOrg(ctx, organizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invitations")
	}
	return out, nil
}

// Revoke deletes a pending invitation.
func (s *Service) Revoke(ctx context.Context, organizationID, invID string) error {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireOrgAdmin(actor, organizationID); err != nil {
		return err
	}
	if err := s.invitations.Delete(ctx, invID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "invitation not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete invitation")
	}
	s.logger.InfoContext(ctx, "invitation revoked", "invitation_id", invID, "revoked_by", actor.UID)
	return nil
}

func newToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
