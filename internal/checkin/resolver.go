package checkin

import (
	"encoding/json"
	"fmt"
	"strings"

	id "acredita/pkg/domain"
)

// PayloadKind classifies a raw QR payload before any parsing happens, so
// format detection is a pure step separable from error handling.
type PayloadKind string

const (
	KindSlash PayloadKind = "slash"
	KindJSON  PayloadKind = "json"
	KindPlain PayloadKind = "plain"
)

// ResolveErrorKind distinguishes the resolver's failure modes so each gets a
// specific operator-facing diagnostic.
type ResolveErrorKind string

const (
	// ErrMalformedStructured: the payload looked like JSON but did not
	// parse. Deliberately not downgraded to plain-identifier parsing; a
	// user who intended structured input deserves a specific diagnostic.
	ErrMalformedStructured ResolveErrorKind = "malformed_structured_payload"
	// ErrInvalidIdentifier: the candidate token does not match the
	// identifier pattern.
	ErrInvalidIdentifier ResolveErrorKind = "invalid_identifier_format"
	// ErrMissingFields: a structured payload parsed but lacks required
	// fields (dni, nombre).
	ErrMissingFields ResolveErrorKind = "missing_required_fields"
)

// ResolveError is a terminal scan failure raised while turning raw scanned
// text into a lookup key.
type ResolveError struct {
	Kind  ResolveErrorKind
	Token string
	cause error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ErrMalformedStructured:
		return "malformed structured payload"
	case ErrInvalidIdentifier:
		return fmt.Sprintf("invalid identifier format: %s", e.Token)
	case ErrMissingFields:
		return "structured payload is missing required fields"
	default:
		return "unresolvable scan payload"
	}
}

func (e *ResolveError) Unwrap() error { return e.cause }

// Resolution is the resolver's output: the lookup key plus an optional
// display name for the soft cross-check against the stored record.
type Resolution struct {
	DNI      id.DNI
	NameHint string
	Kind     PayloadKind
}

// Classify assigns the raw payload to one of the three supported encodings
// without parsing it. JSON markers win so a malformed JSON payload is never
// misread as a plain identifier; the slash formats never start with a brace.
func Classify(raw string) PayloadKind {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "["):
		return KindJSON
	case strings.Contains(raw, "/"):
		return KindSlash
	default:
		return KindPlain
	}
}

// Resolve parses raw scanned text into a participant lookup key. The active
// event's ID disambiguates the two slash encodings: "<eventId>/<dni>" versus
// "<name>/<dni>/<email>".
func Resolve(raw string, activeEventID string) (Resolution, error) {
	raw = strings.TrimSpace(raw)
	kind := Classify(raw)
	switch kind {
	case KindSlash:
		return resolveSlash(raw, activeEventID)
	case KindJSON:
		return resolveJSON(raw)
	default:
		return resolvePlain(raw)
	}
}

func resolveSlash(raw, activeEventID string) (Resolution, error) {
	segments := strings.Split(raw, "/")
	if len(segments) < 2 {
		return Resolution{}, &ResolveError{Kind: ErrInvalidIdentifier, Token: raw}
	}
	first, second := strings.TrimSpace(segments[0]), segments[1]

	dni, err := id.ParseDNI(second)
	if err != nil {
		return Resolution{}, &ResolveError{Kind: ErrInvalidIdentifier, Token: strings.TrimSpace(second), cause: err}
	}
	if first == activeEventID {
		// Event-scoped format: first segment is the event, no name to cross-check.
		return Resolution{DNI: dni, Kind: KindSlash}, nil
	}
	return Resolution{DNI: dni, NameHint: first, Kind: KindSlash}, nil
}

// legacyPayload is the historical JSON encoding. Permisos used to travel in
// the QR itself; it is accepted and ignored, the store is authoritative now.
type legacyPayload struct {
	DNI      string          `json:"dni"`
	Nombre   string          `json:"nombre"`
	Permisos json.RawMessage `json:"permisos"`
}

func resolveJSON(raw string) (Resolution, error) {
	var payload legacyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Resolution{}, &ResolveError{Kind: ErrMalformedStructured, cause: err}
	}
	if strings.TrimSpace(payload.DNI) == "" || strings.TrimSpace(payload.Nombre) == "" {
		return Resolution{}, &ResolveError{Kind: ErrMissingFields}
	}
	dni, err := id.ParseDNI(payload.DNI)
	if err != nil {
		return Resolution{}, &ResolveError{Kind: ErrInvalidIdentifier, Token: strings.TrimSpace(payload.DNI), cause: err}
	}
	return Resolution{DNI: dni, NameHint: strings.TrimSpace(payload.Nombre), Kind: KindJSON}, nil
}

func resolvePlain(raw string) (Resolution, error) {
	token := raw
	if i := strings.Index(token, "+"); i >= 0 {
		token = token[:i]
	}
	dni, err := id.ParseDNI(token)
	if err != nil {
		return Resolution{}, &ResolveError{Kind: ErrInvalidIdentifier, Token: strings.TrimSpace(token), cause: err}
	}
	return Resolution{DNI: dni, Kind: KindPlain}, nil
}

// BestEffortDNI extracts whatever identifier-looking token the raw payload
// carries, for logging failed attempts. Returns "unknown" when nothing
// usable is present.
func BestEffortDNI(raw string) string {
	raw = strings.TrimSpace(raw)
	switch Classify(raw) {
	case KindSlash:
		segments := strings.Split(raw, "/")
		if len(segments) >= 2 && strings.TrimSpace(segments[1]) != "" {
			return strings.ToUpper(strings.TrimSpace(segments[1]))
		}
	case KindJSON:
		var payload legacyPayload
		if json.Unmarshal([]byte(raw), &payload) == nil && strings.TrimSpace(payload.DNI) != "" {
			return strings.ToUpper(strings.TrimSpace(payload.DNI))
		}
	default:
		token := raw
		if i := strings.Index(token, "+"); i >= 0 {
			token = token[:i]
		}
		if token = strings.TrimSpace(token); token != "" {
			return strings.ToUpper(token)
		}
	}
	return "unknown"
}
