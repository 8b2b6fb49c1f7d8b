package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

const placeholderPasswordSize = 32

// ErrInvalidTokenLength is returned for a non-positive token length.
var ErrInvalidTokenLength = errors.New("token length must be > 0")

// NewToken returns byteLength random bytes from crypto/rand encoded as
// unpadded base64url.
func NewToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", ErrInvalidTokenLength
	}

	raw := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// RandomPassword returns an unguessable placeholder password. Nobody ever
// learns it; accounts holding it can only be unlocked by a reset.
func RandomPassword() (string, error) {
	return NewToken(placeholderPasswordSize)
}

// EncodedTokenLength returns the length of a token produced by NewToken.
func EncodedTokenLength(byteLength int) int {
	return base64.RawURLEncoding.EncodedLen(byteLength)
}
