package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "acredita/pkg/domain-errors"
)

func TestParseDNI(t *testing.T) {
	t.Run("accepts a standard document number", func(t *testing.T) {
		dni, err := ParseDNI("12345678Z")
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", dni.String())
	})

	t.Run("uppercases and trims input", func(t *testing.T) {
		dni, err := ParseDNI("  12345678z ")
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", dni.String())
	})

	t.Run("accepts NIE prefixes", func(t *testing.T) {
		for _, raw := range []string{"X1234567L", "Y1234567L", "Z1234567L"} {
			dni, err := ParseDNI(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, dni.String())
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseDNI("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects malformed identifiers", func(t *testing.T) {
		for _, raw := range []string{
			"1234567Z",    // too short
			"123456789Z",  // too long
			"12345678",    // missing letter
			"A1234567L",   // invalid prefix letter
			"12345678Ñ",   // letter outside A-Z
			"12 345678Z",  // interior whitespace
			"'; DROP TABLE participants;--",
		} {
			_, err := ParseDNI(raw)
			require.Error(t, err, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), raw)
		}
	})
}
