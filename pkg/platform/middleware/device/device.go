// Package device derives the identifier the scan pipeline keys its
// single-flight guard on. A scanner may send X-Device-ID explicitly; absent
// that, the ID is fingerprinted from the client IP and parsed User-Agent so
// repeated frames from the same browser collapse onto one key.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"acredita/pkg/platform/middleware/metadata"
	"acredita/pkg/requestcontext"

	"github.com/mssola/useragent"
)

const headerName = "X-Device-ID"

// Middleware attaches the device identifier to the request context.
// It must run after metadata.ClientMetadata.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		deviceID := r.Header.Get(headerName)
		if deviceID == "" {
			deviceID = Fingerprint(metadata.GetClientIP(ctx), metadata.GetUserAgent(ctx))
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithDeviceID(ctx, deviceID)))
	})
}

// Fingerprint hashes the stable parts of a client's identity. Browser and OS
// names come from the parsed User-Agent rather than the raw string so minor
// version bumps do not change the device key mid-event.
func Fingerprint(clientIP, rawUserAgent string) string {
	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()

	h := sha256.New()
	h.Write([]byte(clientIP))
	h.Write([]byte{0})
	h.Write([]byte(browser))
	h.Write([]byte{0})
	h.Write([]byte(ua.OS()))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
