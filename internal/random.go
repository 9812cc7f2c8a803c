package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// TokenBytes is the entropy of opaque random tokens such as CSRF values.
const TokenBytes = 32

// RandomToken returns n bytes from crypto/rand encoded as unpadded base64url.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid random token size")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
