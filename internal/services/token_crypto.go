package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/takato23/lookescolar-sub001/internal/models"
)

const (
	// tokenBytes is the entropy of the plaintext token (256 bits).
	tokenBytes = 32
	// saltBytes is the entropy of the per-token salt (128 bits).
	saltBytes = 16
	// prefixChars is how many leading characters of the plaintext go into
	// the lookup prefix.
	prefixChars = 8
)

// TokenMaterial is the output of generating a token. Plaintext is handed to
// the caller exactly once and never persisted in recoverable form.
type TokenMaterial struct {
	Plaintext string
	Prefix    string
	Hash      string
	Salt      string
}

// TokenCrypto generates token material and verifies presented tokens against
// stored hashes.
type TokenCrypto struct{}

func NewTokenCrypto() *TokenCrypto {
	return &TokenCrypto{}
}

// Generate draws a fresh plaintext token and its salt, and derives the
// stored hash and the lookup prefix. The prefix is a non-secret slice of the
// plaintext plus a one-letter scope tag; it only narrows database lookups.
func (c *TokenCrypto) Generate(scope models.TokenScope) (*TokenMaterial, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	return &TokenMaterial{
		Plaintext: plaintext,
		Prefix:    Prefix(scope, plaintext),
		Hash:      HashToken(plaintext, saltHex),
		Salt:      saltHex,
	}, nil
}

// Prefix derives the non-secret lookup prefix for a presented plaintext.
func Prefix(scope models.TokenScope, plaintext string) string {
	if len(plaintext) < prefixChars {
		return scope.PrefixTag() + plaintext
	}
	return scope.PrefixTag() + plaintext[:prefixChars]
}

// PrefixFromPlaintext derives the lookup prefix without knowing the scope;
// candidate rows for every scope tag share the plaintext slice, so the scope
// letter is recovered from the stored row, not the presented token.
func PrefixFromPlaintext(plaintext string) string {
	if len(plaintext) < prefixChars {
		return plaintext
	}
	return plaintext[:prefixChars]
}

// HashToken computes hex(SHA-256(plaintext || salt)).
func HashToken(plaintext, salt string) string {
	h := sha256.Sum256([]byte(plaintext + salt))
	return hex.EncodeToString(h[:])
}

// VerifyToken recomputes the salted hash and compares it in constant time.
func VerifyToken(plaintext, salt, expectedHash string) bool {
	actual := HashToken(plaintext, salt)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}

// MaskToken renders a token-like identifier safe for responses and audit
// entries. Raw tokens are never echoed back.
func MaskToken(s string) string {
	if len(s) <= 3 {
		return "tok_***"
	}
	return "tok_" + s[:3] + "***"
}
