package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func Test_Codec_RoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	d := &CursorDescriptor{
		CursorValues: map[string]any{
			"created_at": createdAt,
			"id":         float64(42),
			"name":       "bob",
			"active":     true,
		},
		OrderBy:   []string{"created_at", "id", "name", "active"},
		Limit:     25,
		Direction: DirectionNext,
		Filters:   map[string]any{"city": "Osaka"},
		Timestamp: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
	}

	token, err := EncodeCursor(d)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)

	assert.Equal(t, d.OrderBy, decoded.OrderBy)
	assert.Equal(t, d.Limit, decoded.Limit)
	assert.Equal(t, d.Direction, decoded.Direction)
	assert.Equal(t, d.Filters, decoded.Filters)
	assert.Equal(t, d.CursorValues, decoded.CursorValues)
	assert.True(t, d.Timestamp.Equal(decoded.Timestamp))
}

func Test_Codec_TemporalHeuristic(t *testing.T) {
	// A cursor value that merely looks like a timestamp gets revived too;
	// that ambiguity is part of the codec contract.
	d := NewDescriptor("note", "id")
	d.CursorValues = map[string]any{
		"note": "2023-01-02T03:04:05Z",
		"id":   float64(7),
	}

	token, err := EncodeCursor(d)
	require.NoError(t, err)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)

	revived, ok := decoded.CursorValues["note"].(time.Time)
	require.True(t, ok, "ISO-8601-like string should be revived as time.Time")
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), revived.UTC())
	assert.Equal(t, float64(7), decoded.CursorValues["id"])
}

func Test_Codec_Decode_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty token", "", ErrMalformedToken},
		{"not base64", "%%%not-base64%%%", ErrMalformedToken},
		{"broken json", b64("{"), ErrMalformedToken},
		{"wrong top-level type", b64(`"just a string"`), ErrInvalidStructure},
		{"wrong field type", b64(`{"orderBy":["id"],"limit":"ten","direction":"next"}`), ErrInvalidStructure},
		{"missing ordering", b64(`{"limit":10,"direction":"next"}`), ErrInvalidStructure},
		{"non-positive limit", b64(`{"orderBy":["id"],"limit":0,"direction":"next"}`), ErrInvalidStructure},
		{"unknown direction", b64(`{"orderBy":["id"],"limit":10,"direction":"up"}`), ErrInvalidStructure},
		{"cursor value outside ordering", b64(`{"cursorValues":{"name":"x"},"orderBy":["id"],"limit":10,"direction":"next"}`), ErrInvalidStructure},
		{"injection in ordering column", b64(`{"orderBy":["id; DROP TABLE users"],"limit":10,"direction":"next"}`), ErrInvalidStructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_Codec_Encode_RejectsInvalidDescriptor(t *testing.T) {
	_, err := EncodeCursor(&CursorDescriptor{Limit: 10, Direction: DirectionNext})
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}

func Test_Codec_Signing(t *testing.T) {
	key := []byte("0123456789abcdef")
	signing := NewCodec().WithSigningKey(key)

	d := NewDescriptor("id")
	d.CursorValues = map[string]any{"id": float64(5)}

	token, err := signing.Encode(d)
	require.NoError(t, err)
	require.Contains(t, token, ".")

	decoded, err := signing.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, d.CursorValues, decoded.CursorValues)

	t.Run("tampered payload is rejected", func(t *testing.T) {
		forged := NewDescriptor("id")
		forged.CursorValues = map[string]any{"id": float64(9000)}
		forgedToken, err := EncodeCursor(forged)
		require.NoError(t, err)

		// Keep the original signature, swap the payload.
		_, signature, _ := cutToken(t, token)
		_, err = signing.Decode(forgedToken + "." + signature)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		unsigned, err := EncodeCursor(d)
		require.NoError(t, err)

		_, err = signing.Decode(unsigned)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("unexpected signature is rejected by unsigned codec", func(t *testing.T) {
		_, err := NewCodec().Decode(token)
		require.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		other := NewCodec().WithSigningKey([]byte("another-key-entirely"))
		_, err := other.Decode(token)
		require.ErrorIs(t, err, ErrMalformedToken)
	})
}

func cutToken(t *testing.T, token string) (string, string, bool) {
	t.Helper()

	for i := range token {
		if token[i] == '.' {
			return token[:i], token[i+1:], true
		}
	}

	return token, "", false
}
