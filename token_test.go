package newsletter

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfirmationToken(t *testing.T) {
	token, hash, err := NewConfirmationToken()
	require.NoError(t, err)

	// 32 random bytes, hex-encoded
	assert.Len(t, token, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(token), hash)
	assert.NotEqual(t, token, hash)

	// Two mints never collide
	token2, hash2, err := NewConfirmationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
	assert.NotEqual(t, hash, hash2)
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

func TestNewSignedTokenCodec_RequiresSecret(t *testing.T) {
	codec, err := NewSignedTokenCodec("")
	assert.Nil(t, codec)
	require.Error(t, err)

	var nlErr *Error
	require.ErrorAs(t, err, &nlErr)
	assert.Equal(t, ErrCodeConfiguration, nlErr.Code)
}

func TestSignedTokenCodec_RoundTrip(t *testing.T) {
	codec, err := NewSignedTokenCodec("test-secret")
	require.NoError(t, err)

	token, err := codec.Mint("reader@example.com", PurposeUnsubscribe, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, len(strings.Split(token, ".")))

	payload, err := codec.Verify(token, PurposeUnsubscribe)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", payload.Email)
	assert.Equal(t, PurposeUnsubscribe, payload.Purpose)
	assert.Greater(t, payload.ExpiresAt, time.Now().Unix())
}

func TestSignedTokenCodec_RejectsTampering(t *testing.T) {
	codec, err := NewSignedTokenCodec("test-secret")
	require.NoError(t, err)

	token, err := codec.Mint("reader@example.com", PurposeUnsubscribe, time.Hour)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	// Swap the email inside the payload, keep the original signature.
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var payload SignedTokenPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload.Email = "attacker@example.com"
	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + parts[1]

	_, err = codec.Verify(tampered, PurposeUnsubscribe)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedTokenCodec_RejectsWrongSecret(t *testing.T) {
	mintCodec, err := NewSignedTokenCodec("secret-a")
	require.NoError(t, err)
	verifyCodec, err := NewSignedTokenCodec("secret-b")
	require.NoError(t, err)

	token, err := mintCodec.Mint("reader@example.com", PurposeUnsubscribe, time.Hour)
	require.NoError(t, err)

	_, err = verifyCodec.Verify(token, PurposeUnsubscribe)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedTokenCodec_RejectsWrongPurpose(t *testing.T) {
	codec, err := NewSignedTokenCodec("test-secret")
	require.NoError(t, err)

	token, err := codec.Mint("reader@example.com", "confirm", time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(token, PurposeUnsubscribe)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedTokenCodec_ExpiredIsDistinct(t *testing.T) {
	codec, err := NewSignedTokenCodec("test-secret")
	require.NoError(t, err)

	token, err := codec.Mint("reader@example.com", PurposeUnsubscribe, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token, PurposeUnsubscribe)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, IsTokenExpired(err))
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedTokenCodec_RejectsMalformed(t *testing.T) {
	codec, err := NewSignedTokenCodec("test-secret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"too many segments", "a.b.c"},
		{"empty payload", ".signature"},
		{"empty signature", "payload."},
		{"invalid base64 payload", "!!!." + strings.Repeat("A", 43)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token, PurposeUnsubscribe)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
