package checkin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, and recomposes, so
// "Pérez" and "Perez" canonicalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalName normalizes a display name for comparison: diacritics
// stripped, case folded, whitespace collapsed. Names vary in accenting
// between the QR source and the stored record, so exact equality is the
// wrong comparison.
func CanonicalName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NamesMatch compares two display names under canonicalization.
func NamesMatch(a, b string) bool {
	return CanonicalName(a) == CanonicalName(b)
}
