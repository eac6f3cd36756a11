package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
)

type contextKey string

const scopeContextKey contextKey = "user_scope"

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope core.UserScope) context.Context {
	return context.WithValue(ctx, scopeContextKey, scope)
}

// ScopeFromContext returns the scope stored by the middleware.
func ScopeFromContext(ctx context.Context) (core.UserScope, bool) {
	scope, ok := ctx.Value(scopeContextKey).(core.UserScope)
	return scope, ok && scope != ""
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// Middleware resolves the caller's scope and rejects unauthenticated requests
// with 401. A nil verifier means auth is disabled and every request runs as
// LocalScope.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scope := LocalScope
			if v != nil {
				token, ok := BearerToken(r)
				if !ok {
					unauthorized(w, "Authorization header required")
					return
				}
				var err error
				scope, err = v.Verify(token)
				if err != nil {
					log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Authentication failed",
						log.FieldErrorType, log.ErrorTypeAuth,
						log.FieldError, err)
					unauthorized(w, "Invalid or expired token")
					return
				}
			}

			ctx = WithScope(ctx, scope)
			ctx = log.NewContext(ctx, log.FromContext(ctx).WithScope(string(scope)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="finboard"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Debug("Write 401 body failed", "error", err)
	}
}
