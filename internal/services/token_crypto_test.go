package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takato23/lookescolar-sub001/internal/models"
)

func TestTokenCryptoGenerate(t *testing.T) {
	crypto := NewTokenCrypto()

	mat, err := crypto.Generate(models.ScopeFamily)
	require.NoError(t, err)

	// 32 bytes base64url, unpadded
	assert.Len(t, mat.Plaintext, 43)
	assert.True(t, strings.HasPrefix(mat.Prefix, "f"))
	assert.Equal(t, "f"+mat.Plaintext[:8], mat.Prefix)
	// hex-encoded SHA-256 and 16-byte salt
	assert.Len(t, mat.Hash, 64)
	assert.Len(t, mat.Salt, 32)

	// The stored hash is never the plaintext
	assert.NotContains(t, mat.Hash, mat.Plaintext[:8])
}

func TestTokenCryptoGenerateUnique(t *testing.T) {
	crypto := NewTokenCrypto()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		mat, err := crypto.Generate(models.ScopeEvent)
		require.NoError(t, err)
		assert.False(t, seen[mat.Plaintext], "duplicate token generated")
		seen[mat.Plaintext] = true
	}
}

func TestVerifyToken(t *testing.T) {
	crypto := NewTokenCrypto()

	mat, err := crypto.Generate(models.ScopeCourse)
	require.NoError(t, err)

	assert.True(t, VerifyToken(mat.Plaintext, mat.Salt, mat.Hash))
	assert.False(t, VerifyToken(mat.Plaintext+"x", mat.Salt, mat.Hash))
	assert.False(t, VerifyToken(mat.Plaintext, "00"+mat.Salt[2:], mat.Hash))
}

func TestHashToken(t *testing.T) {
	// Same input, same hash; different salt, different hash
	h1 := HashToken("secret", "salt-a")
	h2 := HashToken("secret", "salt-a")
	h3 := HashToken("secret", "salt-b")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestScopePrefixTags(t *testing.T) {
	tests := []struct {
		scope models.TokenScope
		tag   string
	}{
		{models.ScopeEvent, "e"},
		{models.ScopeCourse, "c"},
		{models.ScopeFamily, "f"},
	}
	for _, tt := range tests {
		prefix := Prefix(tt.scope, "abcdefghijklmnop")
		assert.Equal(t, tt.tag+"abcdefgh", prefix)
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "tok_abc***", MaskToken("abcdefghijk"))
	assert.Equal(t, "tok_***", MaskToken("ab"))
	assert.Equal(t, "tok_***", MaskToken(""))
}
