package newsletter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Two token kinds exist and are not interchangeable:
//
//   - Confirmation token: a high-entropy bearer secret minted at subscribe
//     time. Only its SHA-256 hash is persisted; expiry lives server-side next
//     to the hash. Verification is lookup-by-hash.
//
//   - Signed token: a self-contained base64url(payload).base64url(signature)
//     value carrying {email, purpose, exp}. Anyone holding the secret can
//     mint and verify it; no server-side storage. It stays valid until its
//     embedded expiry regardless of later account changes (it cannot be
//     revoked early).

// PurposeUnsubscribe is the payload purpose for one-click unsubscribe links.
const PurposeUnsubscribe = "unsubscribe"

// NewConfirmationToken mints a random confirmation token and returns the raw
// token (for the email link) together with the hash to persist.
func NewConfirmationToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", NewErrorWithCause(ErrCodeConfiguration, "failed to generate confirmation token", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a confirmation token.
// The digest, never the token itself, is what the store persists.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SignedTokenPayload is the claims set carried by a signed token.
type SignedTokenPayload struct {
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	ExpiresAt int64  `json:"exp"` // Unix seconds
}

// SignedTokenCodec mints and verifies self-contained HMAC-signed tokens.
type SignedTokenCodec struct {
	secret []byte
}

// NewSignedTokenCodec creates a codec from the server signing secret.
func NewSignedTokenCodec(secret string) (*SignedTokenCodec, error) {
	if secret == "" {
		return nil, NewError(ErrCodeConfiguration, "signing secret is required")
	}
	return &SignedTokenCodec{secret: []byte(secret)}, nil
}

// Mint produces a signed token for the given email and purpose, valid for ttl.
func (c *SignedTokenCodec) Mint(email, purpose string, ttl time.Duration) (string, error) {
	payload := SignedTokenPayload{
		Email:     email,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeConfiguration, "failed to encode token payload", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(encoded), nil
}

// Verify checks a signed token's signature, purpose, and expiry.
// Returns the payload on success, ErrTokenInvalid for malformed or forged
// tokens, and ErrTokenExpired for authentic tokens past their expiry.
func (c *SignedTokenCodec) Verify(token, purpose string) (*SignedTokenPayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrTokenInvalid
	}
	encoded, signature := parts[0], parts[1]

	expected := c.sign(encoded)
	if len(signature) != len(expected) {
		return nil, ErrTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return nil, ErrTokenInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var payload SignedTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrTokenInvalid
	}
	if payload.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	if time.Now().Unix() > payload.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &payload, nil
}

func (c *SignedTokenCodec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
