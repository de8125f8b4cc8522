package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventID = "evt-1"

func TestClassify(t *testing.T) {
	assert.Equal(t, KindJSON, Classify(`{"dni":"12345678Z"}`))
	assert.Equal(t, KindJSON, Classify(`  {"dni":"12345678Z"}`))
	assert.Equal(t, KindSlash, Classify("evt-1/12345678Z"))
	assert.Equal(t, KindPlain, Classify("12345678Z"))
	assert.Equal(t, KindPlain, Classify(""))
}

func TestResolvePlain(t *testing.T) {
	t.Run("bare identifier", func(t *testing.T) {
		res, err := Resolve("12345678z", testEventID)
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", res.DNI.String())
		assert.Empty(t, res.NameHint)
		assert.Equal(t, KindPlain, res.Kind)
	})

	t.Run("plus suffix is ignored", func(t *testing.T) {
		res, err := Resolve("12345678Z+extra+data", testEventID)
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", res.DNI.String())
	})

	t.Run("garbage is rejected with the offending token", func(t *testing.T) {
		_, err := Resolve("not-a-dni", testEventID)
		var rerr *ResolveError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrInvalidIdentifier, rerr.Kind)
		assert.Equal(t, "not-a-dni", rerr.Token)
	})
}

func TestResolveSlash(t *testing.T) {
	t.Run("event-scoped format has no name hint", func(t *testing.T) {
		res, err := Resolve(testEventID+"/12345678Z", testEventID)
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", res.DNI.String())
		assert.Empty(t, res.NameHint)
	})

	t.Run("name format carries the hint", func(t *testing.T) {
		res, err := Resolve("Jose Perez/12345678Z/jose@example.com", testEventID)
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", res.DNI.String())
		assert.Equal(t, "Jose Perez", res.NameHint)
	})

	t.Run("invalid identifier in second segment", func(t *testing.T) {
		_, err := Resolve("Jose Perez/nope/jose@example.com", testEventID)
		var rerr *ResolveError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrInvalidIdentifier, rerr.Kind)
	})
}

func TestResolveJSON(t *testing.T) {
	t.Run("legacy payload", func(t *testing.T) {
		res, err := Resolve(`{"dni":"12345678z","nombre":"Jose Perez","permisos":{"cena":true}}`, testEventID)
		require.NoError(t, err)
		assert.Equal(t, "12345678Z", res.DNI.String())
		assert.Equal(t, "Jose Perez", res.NameHint)
		assert.Equal(t, KindJSON, res.Kind)
	})

	t.Run("malformed JSON is never downgraded to plain parsing", func(t *testing.T) {
		_, err := Resolve(`{"dni": "12345678Z"`, testEventID)
		var rerr *ResolveError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrMalformedStructured, rerr.Kind)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := Resolve(`{"dni":"12345678Z"}`, testEventID)
		var rerr *ResolveError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrMissingFields, rerr.Kind)

		_, err = Resolve(`{"nombre":"Jose"}`, testEventID)
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ErrMissingFields, rerr.Kind)
	})
}

func TestBestEffortDNI(t *testing.T) {
	assert.Equal(t, "12345678Z", BestEffortDNI("12345678z"))
	assert.Equal(t, "NOPE", BestEffortDNI("evt-1/nope"))
	assert.Equal(t, "12345678Z", BestEffortDNI(`{"dni":"12345678z","nombre":"x"}`))
	assert.Equal(t, "unknown", BestEffortDNI(""))
	assert.Equal(t, "unknown", BestEffortDNI(`{"broken`))
}
