// internal/utils/random.go

package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// RandomURLSafeToken returns n bytes of entropy encoded as unpadded
// base64url, suitable for WebAuthn challenges and similar nonces.
func RandomURLSafeToken(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// RandomAlphanumericString generates a random string from [a-zA-Z0-9].
func RandomAlphanumericString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			panic(err)
		}
		b[i] = charset[num.Int64()]
	}
	return string(b)
}
