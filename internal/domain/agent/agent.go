// Package agent defines the domain model for registered backend agents
// and their live health state.
package agent

import (
	"errors"
	"net/url"
	"time"
)

// Type enumerates the kinds of backend an agent may represent.
type Type string

const (
	TypeLocalInference Type = "local_inference"
	TypeCodeAssistant  Type = "code_assistant"
	TypeHostedA        Type = "hosted_a"
	TypeHostedB        Type = "hosted_b"
	TypeCustom         Type = "custom"
)

var validTypes = map[Type]bool{
	TypeLocalInference: true,
	TypeCodeAssistant:  true,
	TypeHostedA:        true,
	TypeHostedB:        true,
	TypeCustom:         true,
}

// Status enumerates the possible health states of an agent.
type Status string

const (
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusDegraded    Status = "degraded"
	StatusMaintenance Status = "maintenance"
)

// Agent is a registered backend the orchestrator may dispatch to.
type Agent struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        Type              `json:"type"`
	Endpoint    string            `json:"endpoint"`
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
	Priority    int               `json:"priority"`
	Weight      int               `json:"weight"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Health is the one-per-agent live health record.
type Health struct {
	AgentID       string    `json:"agent_id"`
	Status        Status    `json:"status"`
	LatencyMS     int64     `json:"latency_ms"`
	SuccessRate   float64   `json:"success_rate"`
	RequestCount  int64     `json:"request_count"`
	ErrorCount    int64     `json:"error_count"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	Details       string    `json:"details,omitempty"`
}

// WithRecomputedSuccessRate returns a copy of h with success_rate derived
// from request_count and error_count per the documented invariant.
func (h Health) WithRecomputedSuccessRate() Health {
	if h.RequestCount > 0 {
		h.SuccessRate = float64(h.RequestCount-h.ErrorCount) / float64(h.RequestCount)
	} else {
		h.SuccessRate = 1.0
	}
	return h
}

// WithObservedProbe returns a copy of h updated from a health-probe outcome.
func (h Health) WithObservedProbe(status Status, latencyMS int64, details string, now time.Time) Health {
	h.Status = status
	h.LatencyMS = latencyMS
	h.Details = details
	h.LastCheckedAt = now
	return h
}

// WithRequestOutcome returns a copy of h updated after a dispatch call.
func (h Health) WithRequestOutcome(success bool, latencyMS int64, now time.Time) Health {
	h.RequestCount++
	if !success {
		h.ErrorCount++
		h.Status = StatusDegraded
	} else {
		h.Status = StatusOnline
	}
	h.LatencyMS = latencyMS
	h.LastCheckedAt = now
	return h.WithRecomputedSuccessRate()
}

// WithHealth couples an Agent with its current health for listing.
type WithHealth struct {
	Agent  Agent  `json:"agent"`
	Health Health `json:"health"`
}

// CreateRequest is the input for POST /agents.
type CreateRequest struct {
	Name        string            `json:"name"`
	Type        Type              `json:"type"`
	Endpoint    string            `json:"endpoint"`
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
	Priority    int               `json:"priority"`
	Weight      int               `json:"weight"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
}

// Validate enforces the numeric range and shape constraints an agent
// record must satisfy.
func (r *CreateRequest) Validate() error {
	if len(r.Name) < 2 || len(r.Name) > 64 {
		return errors.New("name must be between 2 and 64 characters")
	}
	if !validTypes[r.Type] {
		return errors.New("invalid agent type")
	}
	u, err := url.Parse(r.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("endpoint must be a valid http(s) URL")
	}
	if r.Model == "" {
		return errors.New("model is required")
	}
	if r.MaxTokens < 1 || r.MaxTokens > 200000 {
		return errors.New("max_tokens must be between 1 and 200000")
	}
	if r.Temperature < 0.0 || r.Temperature > 2.0 {
		return errors.New("temperature must be between 0.0 and 2.0")
	}
	if r.Priority < 1 || r.Priority > 10 {
		return errors.New("priority must be between 1 and 10")
	}
	if r.Weight < 1 || r.Weight > 100 {
		return errors.New("weight must be between 1 and 100")
	}
	return nil
}

// UpdateRequest is the input for PUT /agents/:id. Type changes are rejected
// at the service layer, not here, since this struct has no Type field.
type UpdateRequest struct {
	Name        *string           `json:"name,omitempty"`
	Endpoint    *string           `json:"endpoint,omitempty"`
	Model       *string           `json:"model,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Priority    *int              `json:"priority,omitempty"`
	Weight      *int              `json:"weight,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Applied returns a copy of a with the UpdateRequest's fields applied and
// the combined result validated.
func (r *UpdateRequest) Applied(a Agent) (Agent, error) {
	if r.Name != nil {
		a.Name = *r.Name
	}
	if r.Endpoint != nil {
		a.Endpoint = *r.Endpoint
	}
	if r.Model != nil {
		a.Model = *r.Model
	}
	if r.MaxTokens != nil {
		a.MaxTokens = *r.MaxTokens
	}
	if r.Temperature != nil {
		a.Temperature = *r.Temperature
	}
	if r.Priority != nil {
		a.Priority = *r.Priority
	}
	if r.Weight != nil {
		a.Weight = *r.Weight
	}
	if r.Tags != nil {
		a.Tags = r.Tags
	}
	if r.Metadata != nil {
		a.Metadata = r.Metadata
	}
	check := CreateRequest{
		Name: a.Name, Type: a.Type, Endpoint: a.Endpoint, Model: a.Model,
		MaxTokens: a.MaxTokens, Temperature: a.Temperature,
		Priority: a.Priority, Weight: a.Weight,
	}
	if err := check.Validate(); err != nil {
		return Agent{}, err
	}
	return a, nil
}

// DispatchRequest is the input for POST /openclaw/dispatch.
type DispatchRequest struct {
	AgentID   string    `json:"agent_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message"`
	Context   []Message `json:"context,omitempty"`
}

// Message is a single chat turn exchanged with a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DispatchResult is the response shape for POST /openclaw/dispatch.
type DispatchResult struct {
	RequestID string    `json:"request_id"`
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message"`
	Model     string    `json:"model"`
	TokensUsed int64    `json:"tokens_used"`
	LatencyMS  int64    `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
