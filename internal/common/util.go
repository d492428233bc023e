package common

import (
	"strings"
)

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Use it to drop passwords from memory once they have been sent or hashed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// NormalizeName returns the comparison form of a user or role name:
// surrounding whitespace removed and upper-cased.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// BearerToken extracts the token from an authorization value of the form
// "Bearer <token>". The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
