package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned for requests made after the bearer token lapsed.
var ErrTokenExpired = errors.New("session token expired")

// Token is the optional bearer token issued with the login bundle. The client
// cannot verify its signature; it only reads the claims to bind the token to
// the identity and to know when it lapses.
type Token struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
}

func ParseToken(raw string) (Token, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Token{}, fmt.Errorf("parse session token: %w", err)
	}
	t := Token{Raw: raw, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		t.ExpiresAt = claims.ExpiresAt.Time
	}
	return t, nil
}

func (t Token) Empty() bool { return t.Raw == "" }

func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
