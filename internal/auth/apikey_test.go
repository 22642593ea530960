package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[A-F0-9]{24}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)

		assert.True(t, ValidateAPIKeyFormat(key), "generated key has invalid format: %s", key)
		assert.False(t, seen[key], "generated duplicate key: %s", key)
		seen[key] = true

		parts := strings.Split(key, "-")
		require.Len(t, parts, 6, key)
		assert.True(t, hexPattern.MatchString(parts[4]), "invalid hex component: %s", parts[4])
	}
}

func TestValidateAPIKeyFormat(t *testing.T) {
	generated, err := GenerateAPIKey()
	require.NoError(t, err)

	cases := map[string]struct {
		apiKey string
		want   bool
	}{
		"generated key":      {generated, true},
		"known good key":     {"vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime", true},
		"empty string":       {"", false},
		"too few parts":      {"vault-quantum-dragon", false},
		"too many parts":     {"vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime-extra", false},
		"unknown prefix":     {"north-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime", false},
		"unknown adjective":  {"vault-bogus-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime", false},
		"unknown noun":       {"vault-quantum-bogus-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime", false},
		"unknown suffix":     {"vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-seven", false},
		"hex too short":      {"vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1-prime", false},
		"lowercase hex":      {"vault-quantum-dragon-neural-a1b2c3d4e5f6a7b8c9d0e1f2-prime", false},
		"non-hex characters": {"vault-quantum-dragon-neural-G1H2I3J4K5L6M7N8O9P0Q1R2-prime", false},
	}

	for name, tc := range cases {
		assert.Equal(t, tc.want, ValidateAPIKeyFormat(tc.apiKey), name)
	}
}

func TestHashAPIKey(t *testing.T) {
	key := "vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime"

	hash := HashAPIKey(key)
	assert.Equal(t, hash, HashAPIKey(key), "hash must be deterministic")
	assert.Regexp(t, `^[a-f0-9]{64}$`, hash)

	assert.NotEqual(t, hash, HashAPIKey(key+"x"))
}
