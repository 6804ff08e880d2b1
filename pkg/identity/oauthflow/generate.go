package oauthflow

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateOpaqueToken returns a high-entropy, URL-safe token of n random
// bytes, used for authorization codes and access/refresh tokens alike.
func GenerateOpaqueToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
