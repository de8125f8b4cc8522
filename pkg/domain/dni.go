package domain

import (
	"regexp"
	"strings"

	dErrors "acredita/pkg/domain-errors"
)

// DNI is the participant natural key: a Spanish identity document number or a
// compatible arbitrary identifier. Values are stored uppercased.
//
// Invariant: one leading digit or X/Y/Z (NIE prefix), seven digits, one
// trailing letter.
type DNI string

var dniPattern = regexp.MustCompile(`^[0-9XYZ][0-9]{7}[A-Z]$`)

// ParseDNI validates and normalizes an identifier. Matching is
// case-insensitive on the letters; the stored form is uppercase.
//
// Errors: returns CodeInvalidInput naming the offending token when the value
// does not match the identifier pattern.
func ParseDNI(s string) (DNI, error) {
	token := strings.ToUpper(strings.TrimSpace(s))
	if token == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identifier cannot be empty")
	}
	if !dniPattern.MatchString(token) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid identifier format: "+token)
	}
	return DNI(token), nil
}

// String returns the string representation of the identifier.
func (d DNI) String() string {
	return string(d)
}
