// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets domain code consume request metadata without pulling in
// transport concerns.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActor(ctx, actor)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithDeviceID(ctx, "scanner-3")
package requestcontext

import (
	"context"
	"time"

	id "acredita/pkg/domain"
)

// ActorContext identifies who is performing an operation and the organization
// they belong to. It replaces ambient global authentication state: every
// store query and permission check receives it explicitly via context.
type ActorContext struct {
	UID            string
	Role           id.Role
	OrganizationID string
}

// IsZero reports whether no actor has been attached to the request.
func (a ActorContext) IsZero() bool {
	return a.UID == "" && a.Role == "" && a.OrganizationID == ""
}

// Context key types (unexported for encapsulation).
type (
	actorKey       struct{}
	deviceIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyDeviceID    = deviceIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the authenticated actor from the context.
// Returns the zero value if not set.
func Actor(ctx context.Context) ActorContext {
	if actor, ok := ctx.Value(ContextKeyActor).(ActorContext); ok {
		return actor
	}
	return ActorContext{}
}

// WithActor injects an actor into the context.
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// DeviceID retrieves the scanning device identifier from the context. The
// orchestrator keys its single-flight guard on this value.
func DeviceID(ctx context.Context) string {
	if deviceID, ok := ctx.Value(ContextKeyDeviceID).(string); ok {
		return deviceID
	}
	return ""
}

// WithDeviceID injects a device identifier into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceID, deviceID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests and workers needing consistent time in a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
