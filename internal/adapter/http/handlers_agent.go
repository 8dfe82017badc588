package http

import (
	"net/http"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/agent"
	"github.com/openclaw/gateway/internal/middleware"
)

// ListAgents handles GET /agents.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Orchestrator.ListAgents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// CreateAgent handles POST /agents.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.CreateRequest](w, r)
	if !ok {
		return
	}
	actor := middleware.UserFromContext(r.Context())

	a, err := h.Orchestrator.CreateAgent(r.Context(), req, actor.ID, actor.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAgent handles PUT /agents/:id.
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.UpdateRequest](w, r)
	if !ok {
		return
	}
	actor := middleware.UserFromContext(r.Context())

	a, err := h.Orchestrator.UpdateAgent(r.Context(), urlParam(r, "id"), req, actor.ID, actor.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAgent handles DELETE /agents/:id.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	if err := h.Orchestrator.DeleteAgent(r.Context(), urlParam(r, "id"), actor.ID, actor.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProbeAgentHealth handles GET /agents/:id/health.
func (h *Handlers) ProbeAgentHealth(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orchestrator.ProbeAgent(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Dispatch handles POST /openclaw/dispatch.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.DispatchRequest](w, r)
	if !ok {
		return
	}
	if req.Message == "" {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
		return
	}
	actor := middleware.UserFromContext(r.Context())
	if actor == nil {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}

	result, err := h.Orchestrator.Dispatch(r.Context(), req, actor.ID, actor.Email, clientIP(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
