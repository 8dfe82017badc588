package http

import (
	"net/http"
	"time"

	"github.com/openclaw/gateway/internal/domain/audit"
)

// QueryAudit handles GET /audit.
func (h *Handlers) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := audit.Filter{
		ActorUserID:  q.Get("actor_user_id"),
		Action:       audit.Action(q.Get("action")),
		ResourceType: q.Get("resource_type"),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			f.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			f.To = t
		}
	}

	limit := queryInt(r, "limit", 50)
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	result, err := h.AuditSvc.Query(r.Context(), f, audit.Page{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
