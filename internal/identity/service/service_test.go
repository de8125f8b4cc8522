package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memory "acredita/internal/identity/store/memory"
	"acredita/internal/identity/token"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/requestcontext"
)

func newService(t *testing.T) (*Service, *memory.InMemory) {
	t.Helper()
	users := memory.NewInMemory()
	tokens := token.NewService("test-signing-key", "acredita-test", time.Hour)
	return New(users, tokens), users
}

func actorCtx(uid string, role id.Role, orgID string) context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
		UID: uid, Role: role, OrganizationID: orgID,
	})
}

func createUser(t *testing.T, svc *Service, ctx context.Context, email string, role id.Role) string {
	t.Helper()
	user, err := svc.CreateUser(ctx, CreateUserRequest{
		Email: email, Nombre: "Test User", Password: "s3cretpass",
		Role: role, OrganizationID: "org-1",
	})
	require.NoError(t, err)
	return user.UID
}

func TestCreateUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := actorCtx("boss", id.RoleAdminResponsable, "org-1")

	t.Run("creates below own rank", func(t *testing.T) {
		uid := createUser(t, svc, ctx, "admin@example.com", id.RoleAdmin)
		assert.NotEmpty(t, uid)
	})

	t.Run("cannot create at or above own rank", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Email: "peer@example.com", Password: "s3cretpass",
			Role: id.RoleAdminResponsable, OrganizationID: "org-1",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("cannot create in another organization", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Email: "other@example.com", Password: "s3cretpass",
			Role: id.RoleControlador, OrganizationID: "org-2",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Email: "short@example.com", Password: "short",
			Role: id.RoleControlador, OrganizationID: "org-1",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("duplicate email conflicts case-insensitively", func(t *testing.T) {
		createUser(t, svc, ctx, "dup@example.com", id.RoleControlador)
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Email: "DUP@Example.com", Password: "s3cretpass",
			Role: id.RoleControlador, OrganizationID: "org-1",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestLoginAndToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := actorCtx("boss", id.RoleAdminResponsable, "org-1")
	createUser(t, svc, ctx, "login@example.com", id.RoleControlador)

	t.Run("round-trips through the token", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "login@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, int64(3600), result.ExpiresIn)

		actor, err := svc.ActorFromToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.User.UID, actor.UID)
		assert.Equal(t, id.RoleControlador, actor.Role)
		assert.Equal(t, "org-1", actor.OrganizationID)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, badPass := svc.Login(context.Background(), "login@example.com", "wrong-pass")
		_, noUser := svc.Login(context.Background(), "ghost@example.com", "wrong-pass")
		require.Error(t, badPass)
		require.Error(t, noUser)
		assert.Equal(t, dErrors.MessageOf(badPass), dErrors.MessageOf(noUser))
		assert.True(t, dErrors.HasCode(badPass, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := svc.ActorFromToken("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		otherTokens := token.NewService("other-key", "acredita-test", time.Hour)
		forged, err := otherTokens.Generate("u1", id.RoleSuperAdmin, "", time.Now())
		require.NoError(t, err)
		_, err = svc.ActorFromToken(forged)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		past := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
		result, err := svc.Login(past, "login@example.com", "s3cretpass")
		require.NoError(t, err)
		_, err = svc.ActorFromToken(result.Token)
		require.Error(t, err)
		assert.Equal(t, "token has expired", dErrors.MessageOf(err))
	})
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := actorCtx("boss", id.RoleAdminResponsable, "org-1")
	uid := createUser(t, svc, ctx, "target@example.com", id.RoleControlador)

	t.Run("cannot delete own account", func(t *testing.T) {
		err := svc.DeleteUser(actorCtx(uid, id.RoleControlador, "org-1"), uid)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("cannot delete an equal rank", func(t *testing.T) {
		peer := createUser(t, svc, ctx, "peer2@example.com", id.RoleAdmin)
		err := svc.DeleteUser(actorCtx("some-admin", id.RoleAdmin, "org-1"), peer)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("outranking actor deletes", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, uid))
		_, err := svc.GetUser(ctx, uid)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestListUsers(t *testing.T) {
	svc, _ := newService(t)
	ctx := actorCtx("boss", id.RoleAdminResponsable, "org-1")
	createUser(t, svc, ctx, "a@example.com", id.RoleControlador)
	createUser(t, svc, ctx, "b@example.com", id.RoleControlador)

	users, err := svc.ListUsers(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.ListUsers(ctx, "org-2")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestBootstrap(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "root@example.com", "s3cretpass"))
	user, err := users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, id.RoleSuperAdmin, user.Role)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, svc.Bootstrap(ctx, "root@example.com", "otherpass1"))
		result, err := svc.Login(ctx, "root@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.NotNil(t, result, "original credentials survive a re-bootstrap")
	})

	t.Run("blank config is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.Bootstrap(ctx, "", ""))
	})
}
