package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"library/internal/handler/http/httpx"
)

type ctxKey struct{}

// RequireUser reads the authenticated user id that the upstream auth proxy
// puts in header. Requests without it get 401.
func RequireUser(header string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if userID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized", "", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
