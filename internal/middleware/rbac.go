package middleware

import (
	"net/http"

	"github.com/openclaw/gateway/internal/domain/user"
)

// RequireRole returns middleware that restricts access to users with one of the given roles.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if !allowed[u.Role] {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
