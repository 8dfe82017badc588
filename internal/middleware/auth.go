package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/tokenauth"
)

// SessionCookieName is the http-only cookie carrying the session token.
const SessionCookieName = "auth_token"

// writeJSONError writes a JSON error response with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

type authUserCtxKey struct{}

// publicPaths are exempt from session authentication.
var publicPaths = map[string]bool{
	"/health":                       true,
	"/api/v1/auth/login":            true,
	"/api/v1/auth/totp/verify":      true,
}

// Auth returns middleware that validates the auth_token session cookie and
// injects the authenticated user's identity into the request context.
func Auth(signer *tokenauth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			claims, err := signer.VerifySession(cookie.Value)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
				return
			}

			u := &user.User{
				ID:    claims.UserID,
				Email: claims.Email,
				Role:  claims.Role,
			}

			ctx := context.WithValue(r.Context(), authUserCtxKey{}, u)
			ctx = context.WithValue(ctx, sessionClaimsCtxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type sessionClaimsCtxKey struct{}

// UserFromContext returns the authenticated user's partial identity from
// the request context (id, email, role only — the full record is fetched
// from the store by handlers that need more).
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(authUserCtxKey{}).(*user.User)
	return u
}

// SessionClaimsFromContext returns the verified session claims, including
// the session id whose server-side record is deleted on logout.
func SessionClaimsFromContext(ctx context.Context) (user.SessionClaims, bool) {
	c, ok := ctx.Value(sessionClaimsCtxKey{}).(user.SessionClaims)
	return c, ok
}

// AuthUserCtxKeyForTest returns the context key used for storing the auth
// user. Exported only for use in tests that need to inject a user into the
// context.
func AuthUserCtxKeyForTest() any {
	return authUserCtxKey{}
}
