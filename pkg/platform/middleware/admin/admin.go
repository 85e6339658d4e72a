// Package admin guards the /admin routes with a shared operator token.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"bloodlink/pkg/requestcontext"
)

type (
	contextKeyAdmin   struct{}
	contextKeyActorID struct{}
)

// IsAdminRequest reports whether ctx passed RequireAdminToken.
func IsAdminRequest(ctx context.Context) bool {
	ok, _ := ctx.Value(contextKeyAdmin{}).(bool)
	return ok
}

// ActorID returns the X-Admin-Actor-ID header captured for audit attribution,
// or "" when the operator did not identify themselves.
func ActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(contextKeyActorID{}).(string); ok {
		return actorID
	}
	return ""
}

// WithActorID is used by workers and tests that act on behalf of an operator.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID{}, actorID)
}

// RequireAdminToken rejects requests whose X-Admin-Token does not match
// expectedToken. An empty expectedToken locks the admin surface entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx = context.WithValue(ctx, contextKeyAdmin{}, true)
			if actorID := r.Header.Get("X-Admin-Actor-ID"); actorID != "" {
				ctx = WithActorID(ctx, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
