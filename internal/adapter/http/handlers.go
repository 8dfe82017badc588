package http

import (
	"net"
	"net/http"
	"time"

	"github.com/openclaw/gateway/internal/config"
	"github.com/openclaw/gateway/internal/middleware"
	"github.com/openclaw/gateway/internal/service"
	"github.com/openclaw/gateway/internal/tokenauth"
)

// Handlers holds every service the HTTP boundary dispatches into.
type Handlers struct {
	Auth         *service.AuthService
	Orchestrator *service.OrchestratorService
	AuditSvc     *service.AuditService
	RateLimiter  *service.RateLimiterService
	Vault        *service.VaultService
	Signer       *tokenauth.Signer
	AuthCfg      config.Auth
	StartedAt    time.Time
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.AuthCfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(tokenauth.SessionTTL.Seconds()),
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.AuthCfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
