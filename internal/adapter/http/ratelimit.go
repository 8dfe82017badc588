package http

import (
	"net/http"

	"github.com/openclaw/gateway/internal/domain/ratelimit"
	"github.com/openclaw/gateway/internal/middleware"
	"github.com/openclaw/gateway/internal/service"
)

// rateLimited returns middleware that enforces policy against the caller,
// keyed by the authenticated user id when present and falling back to the
// client IP for unauthenticated routes such as login.
func rateLimited(limiter *service.RateLimiterService, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := clientIP(r)
			if u := middleware.UserFromContext(r.Context()); u != nil && u.ID != "" {
				principal = u.ID
			}

			if _, err := limiter.Check(r.Context(), policy, principal); err != nil {
				writeDomainError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
