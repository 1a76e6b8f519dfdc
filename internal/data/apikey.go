package data

import (
	"crypto/rand"
	"fmt"
)

// apiKeySecretSize is the random portion's length, the way the teacher's API
// key model sizes its generated secret.
const apiKeySecretSize = 32

const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateAPIKey returns a prefixed, cryptographically random key, e.g.
// "ck_AbC123...", for a customer or reseller's api_key column.
func GenerateAPIKey(prefix string) (string, error) {
	secretBytes := make([]byte, apiKeySecretSize)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating api key secret: %w", err)
	}

	out := make([]byte, apiKeySecretSize)
	for i, b := range secretBytes {
		out[i] = apiKeyAlphabet[int(b)%len(apiKeyAlphabet)]
	}
	return fmt.Sprintf("%s_%s", prefix, string(out)), nil
}
