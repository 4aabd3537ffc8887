package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateConfirmToken returns a cryptographically random token for the
// email confirmation link.
func GenerateConfirmToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
