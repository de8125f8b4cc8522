package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityservice "acredita/internal/identity/service"
	identitymemory "acredita/internal/identity/store/memory"
	"acredita/internal/identity/token"
	invitememory "acredita/internal/invite/store/memory"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/requestcontext"
)

type capturingSender struct {
	to   string
	body string
}

func (s *capturingSender) Send(_ context.Context, to, _ string, body string) error {
	s.to = to
	s.body = body
	return nil
}

type fixture struct {
	svc      *Service
	identity *identityservice.Service
	sender   *capturingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := identitymemory.NewInMemory()
	tokens := token.NewService("test-key", "acredita-test", time.Hour)
	identity := identityservice.New(users, tokens)
	sender := &capturingSender{}
	return &fixture{
		svc:      New(invitememory.NewInMemory(), identity, WithSender(sender)),
		identity: identity,
		sender:   sender,
	}
}

func actorCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
		UID: "boss", Role: id.RoleAdminResponsable, OrganizationID: "org-1",
	})
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(actorCtx(), CreateRequest{
		Email: "nuevo@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, "boss", inv.InvitedBy)
	assert.Equal(t, "nuevo@example.com", f.sender.to)
	assert.Contains(t, f.sender.body, "Hola Nuevo", "greeting derived from the email address")
	assert.Contains(t, f.sender.body, inv.Token)

	t.Run("second pending invitation for the same email conflicts", func(t *testing.T) {
		_, err := f.svc.Create(actorCtx(), CreateRequest{
			Email: "nuevo@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("cannot invite at own rank", func(t *testing.T) {
		_, err := f.svc.Create(actorCtx(), CreateRequest{
			Email: "peer@example.com", Role: id.RoleAdminResponsable, OrganizationID: "org-1",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.Create(actorCtx(), CreateRequest{
		Email: "nuevo@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
	})
	require.NoError(t, err)

	t.Run("redeems unauthenticated and creates the account", func(t *testing.T) {
		user, err := f.svc.Accept(context.Background(), AcceptRequest{
			Token: inv.Token, Nombre: "Nuevo Operador", Password: "s3cretpass",
		})
		require.NoError(t, err)
		assert.Equal(t, id.RoleControlador, user.Role)
		assert.Equal(t, "org-1", user.OrganizationID)

		result, err := f.identity.Login(context.Background(), "nuevo@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("double accept conflicts", func(t *testing.T) {
		_, err := f.svc.Accept(context.Background(), AcceptRequest{
			Token: inv.Token, Nombre: "Otro", Password: "s3cretpass",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.svc.Accept(context.Background(), AcceptRequest{
			Token: "no-such-token", Password: "s3cretpass",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("expired invitation", func(t *testing.T) {
		expired, err := f.svc.Create(actorCtx(), CreateRequest{
			Email: "tarde@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
		})
		require.NoError(t, err)

		future := requestcontext.WithTime(context.Background(), time.Now().Add(96*time.Hour))
		_, err = f.svc.Accept(future, AcceptRequest{
			Token: expired.Token, Password: "s3cretpass",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("weak password surfaces the registrar's validation", func(t *testing.T) {
		inv, err := f.svc.Create(actorCtx(), CreateRequest{
			Email: "debil@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
		})
		require.NoError(t, err)
		_, err = f.svc.Accept(context.Background(), AcceptRequest{Token: inv.Token, Password: "short"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.Create(actorCtx(), CreateRequest{
		Email: "nuevo@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(actorCtx(), "org-1", inv.ID))
	_, err = f.svc.Accept(context.Background(), AcceptRequest{Token: inv.Token, Password: "s3cretpass"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = f.svc.Revoke(actorCtx(), "org-1", inv.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(actorCtx(), CreateRequest{
		Email: "a@example.com", Role: id.RoleControlador, OrganizationID: "org-1",
	})
	require.NoError(t, err)

	out, err := f.svc.List(actorCtx(), "org-1")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = f.svc.List(actorCtx(), "org-2")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}
