// Package auth verifies the session tokens that accompany notification
// action events.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when the token is absent, expired, or invalid.
// The background pipeline treats it as fail-closed: never act on behalf of a
// logged-out installation.
var ErrNoSession = errors.New("auth: no authenticated session")

// Session is the verified identity bound to an action event.
type Session struct {
	InstallationID string
	Role           string
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens issued by the platform backend.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a session token. An empty token, a bad
// signature, an expired token, or a missing subject all map to ErrNoSession.
func (v *Verifier) Verify(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" || len(v.secret) == 0 {
		return nil, ErrNoSession
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrNoSession
	}
	if claims.Subject == "" {
		return nil, ErrNoSession
	}

	return &Session{
		InstallationID: claims.Subject,
		Role:           claims.Role,
	}, nil
}
