package testutil

import (
	"net/http"
	"time"

	id "acredita/pkg/domain"
	"acredita/pkg/requestcontext"
)

// WithActor attaches an authenticated actor to the request context,
// simulating what the auth middleware does after validating a token.
func WithActor(req *http.Request, uid string, role id.Role, orgID string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.ActorContext{
		UID:            uid,
		Role:           role,
		OrganizationID: orgID,
	})
	return req.WithContext(ctx)
}

// WithDevice attaches a scanning device identifier to the request context,
// as the device middleware would.
func WithDevice(req *http.Request, deviceID string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceID(req.Context(), deviceID))
}

// WithTime pins the request-scoped clock so assertions on timestamps are
// deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
