package middleware

import (
	"context"
	"net/http"

	"github.com/clientcheck/followup-platform/internal/auth"
)

type contextKey string

const sessionKey contextKey = "session"

type sessionVerifier interface {
	Verify(token string) (*auth.Session, error)
}

// SessionAuth enforces an installation session token on settings endpoints.
func SessionAuth(verifier sessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			session, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the verified session if present.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*auth.Session)
	return session, ok
}
