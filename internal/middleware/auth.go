package middleware

import (
	"net/http"
	"strings"

	"sisa/internal/auth"
)

// RequireAuth guards a handler with bearer-token authentication. When the
// authenticator is disabled the handler is returned unchanged.
// Websocket clients that cannot set headers may pass ?token= instead.
func RequireAuth(a *auth.Authenticator, next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}

		if _, err := a.VerifyToken(token); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
