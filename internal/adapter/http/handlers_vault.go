package http

import (
	"net/http"

	"github.com/openclaw/gateway/internal/domain/vault"
)

// VaultStatus handles GET /vault/status.
func (h *Handlers) VaultStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Vault.Status(r.Context()))
}

// GetVaultConfig handles GET /vault/config.
func (h *Handlers) GetVaultConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Vault.GetConfig(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateVaultConfig handles PUT /vault/config.
func (h *Handlers) UpdateVaultConfig(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[vault.ConfigUpdateRequest](w, r)
	if !ok {
		return
	}
	cfg, err := h.Vault.UpdateConfig(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// VaultComplete handles POST /vault/complete.
func (h *Handlers) VaultComplete(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[vault.CompletionRequest](w, r)
	if !ok {
		return
	}
	if len(req.Messages) == 0 {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "messages is required", nil)
		return
	}
	resp, err := h.Vault.Complete(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VaultUsage handles GET /vault/usage.
func (h *Handlers) VaultUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Vault.Usage(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
