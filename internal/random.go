package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const resetTokenSize = 32

// NewResetToken returns a URL-safe random password reset token.
func NewResetToken() (string, error) {
	var raw [resetTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding; safe inside a query string
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidResetToken reports whether token has the shape NewResetToken produces.
// It lets the server reject garbage before a Redis round-trip.
func ValidResetToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return err
	}
	if len(raw) != resetTokenSize {
		return errors.New("invalid reset token size")
	}
	return nil
}
