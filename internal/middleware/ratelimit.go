package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/ratelimit"
)

// RateLimit throttles AI actions per authenticated user. Limiter failures
// fail open so a Redis outage does not take the API down with it.
func RateLimit(limiter ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if userID := UserIDFromCtx(r.Context()); userID != uuid.Nil {
				key = userID.String()
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("rate limiter unavailable", "key", key, "error", err)
				allowed = true
			}
			if !allowed {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
