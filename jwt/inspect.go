package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by [Inspect] for opaque tokens.
var ErrNotJWT = errors.New("token is not a jwt")

// Inspect decodes the claims of token WITHOUT verifying its signature.
// The result must never be used for authorization.
func Inspect(token string) (*jwt.RegisteredClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}

// Expired reports whether token is a JWT whose exp is before now-leeway.
// Opaque tokens and JWTs without exp are never considered expired here;
// the server stays the authority for those.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Add(leeway).Before(now)
}
