//go:build go1.18

package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzParseDNI exercises the trust boundary with arbitrary input: parsing
// must never panic, must round-trip every accepted value, and must only
// accept values in the canonical uppercase form.
func FuzzParseDNI(f *testing.F) {
	f.Add("")
	f.Add("12345678Z")
	f.Add("12345678z")
	f.Add("X1234567L")
	f.Add("y1234567l")
	f.Add("not-a-dni")
	f.Add("'; DROP TABLE participants;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("12345678Z\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		dni, err := ParseDNI(input)
		if err != nil {
			return
		}

		// Accepted values must round-trip unchanged.
		roundTrip, err2 := ParseDNI(dni.String())
		if err2 != nil {
			t.Errorf("accepted value failed round-trip: %v", err2)
		}
		if roundTrip != dni {
			t.Error("round-trip changed the value")
		}

		// Canonical form is uppercase with no surrounding whitespace.
		if dni.String() != strings.ToUpper(strings.TrimSpace(dni.String())) {
			t.Errorf("accepted value not canonical: %q", dni)
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}
