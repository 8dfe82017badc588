package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/openclaw/gateway/internal/domain/ratelimit"
	"github.com/openclaw/gateway/internal/middleware"
	"github.com/openclaw/gateway/internal/domain/user"
)

// MountRoutes registers every endpoint the gateway exposes onto r.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(h.Signer))

		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimited(h.RateLimiter, ratelimit.PolicyLogin)).Post("/login", h.Login)
			r.With(rateLimited(h.RateLimiter, ratelimit.PolicyTOTP)).Post("/totp/verify", h.VerifyTOTP)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Post("/totp/setup", h.SetupTOTP)
			r.Post("/password", h.ChangePassword)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.With(middleware.RequireRole(user.RoleAdmin, user.RoleOperator)).Post("/", h.CreateAgent)
			r.With(middleware.RequireRole(user.RoleAdmin, user.RoleOperator)).Put("/{id}", h.UpdateAgent)
			r.With(middleware.RequireRole(user.RoleAdmin)).Delete("/{id}", h.DeleteAgent)
			r.Get("/{id}/health", h.ProbeAgentHealth)
		})

		r.With(rateLimited(h.RateLimiter, ratelimit.PolicyDispatch)).Post("/openclaw/dispatch", h.Dispatch)

		r.With(middleware.RequireRole(user.RoleAdmin, user.RoleOperator)).Get("/audit", h.QueryAudit)

		r.Route("/vault", func(r chi.Router) {
			r.Get("/status", h.VaultStatus)
			r.With(middleware.RequireRole(user.RoleAdmin)).Get("/config", h.GetVaultConfig)
			r.With(middleware.RequireRole(user.RoleAdmin)).Put("/config", h.UpdateVaultConfig)
			r.With(rateLimited(h.RateLimiter, ratelimit.PolicyVaultComplete)).Post("/complete", h.VaultComplete)
			r.With(middleware.RequireRole(user.RoleAdmin, user.RoleOperator)).Get("/usage", h.VaultUsage)
		})
	})
}
