package http

import (
	"net/http"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/middleware"
)

type loginResponse struct {
	RequiresTOTP bool   `json:"require_totp"`
	TempToken    string `json:"temp_token,omitempty"`
	User         *user.User `json:"user,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Login handles POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	result, err := h.Auth.Login(r.Context(), req, clientIP(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if result.RequiresTOTP {
		writeJSON(w, http.StatusOK, loginResponse{RequiresTOTP: true, TempToken: result.IntermediateToken})
		return
	}

	h.setSessionCookie(w, result.SessionToken)
	writeJSON(w, http.StatusOK, loginResponse{RequiresTOTP: false, User: &result.User, ExpiresIn: result.ExpiresIn})
}

// VerifyTOTP handles POST /auth/totp/verify.
func (h *Handlers) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.TOTPVerifyRequest](w, r)
	if !ok {
		return
	}

	result, err := h.Auth.VerifyTOTP(r.Context(), req, clientIP(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.setSessionCookie(w, result.SessionToken)
	writeJSON(w, http.StatusOK, loginResponse{RequiresTOTP: false, User: &result.User, ExpiresIn: result.ExpiresIn})
}

// Logout handles POST /auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SessionClaimsFromContext(r.Context())
	if ok {
		if err := h.Auth.Logout(r.Context(), claims.SessionID, claims.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	profile, err := h.Auth.Me(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SetupTOTP handles POST /auth/totp/setup.
func (h *Handlers) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	resp, err := h.Auth.SetupTOTP(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword handles POST /auth/password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	req, ok := readJSON[user.ChangePasswordRequest](w, r)
	if !ok {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), u.ID, req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
