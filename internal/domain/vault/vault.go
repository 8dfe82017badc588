// Package vault defines the domain model for the credential vault: a
// single encrypted upstream API credential plus proxying configuration.
package vault

import "time"

// DefaultBaseURL is the documented default upstream endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// DefaultModel is the documented default completion model.
const DefaultModel = "claude-3-5-sonnet-20241022"

// DefaultMaxTokensPerRequest is the documented default token ceiling.
const DefaultMaxTokensPerRequest = 8192

// Config is the single-row vault configuration.
type Config struct {
	APIKeyCiphertext     string // "iv_hex:tag_hex:ciphertext_hex", empty when unset
	BaseURL              string
	Model                string
	MaxTokensPerRequest  int
	UpdatedAt            time.Time
}

// HasAPIKey reports whether a credential is currently configured.
func (c Config) HasAPIKey() bool {
	return c.APIKeyCiphertext != ""
}

// ConfigView is the read-facing shape for GET /vault/config; it never
// carries ciphertext or key material.
type ConfigView struct {
	HasAPIKey           bool   `json:"has_api_key"`
	BaseURL             string `json:"base_url"`
	Model               string `json:"model"`
	MaxTokensPerRequest int    `json:"max_tokens_per_request"`
}

// ToView projects a Config to its boundary-safe representation.
func (c Config) ToView() ConfigView {
	return ConfigView{
		HasAPIKey:           c.HasAPIKey(),
		BaseURL:             c.BaseURL,
		Model:               c.Model,
		MaxTokensPerRequest: c.MaxTokensPerRequest,
	}
}

// ConfigUpdateRequest is the input for PUT /vault/config. APIKey is a
// pointer so callers can distinguish "not supplied" (retain existing
// ciphertext) from "cleared" (empty string still re-encrypts).
type ConfigUpdateRequest struct {
	APIKey              *string `json:"api_key,omitempty"`
	BaseURL             string  `json:"base_url"`
	Model               string  `json:"model"`
	MaxTokensPerRequest int     `json:"max_tokens_per_request"`
}

// CompletionRequest is the normalized input for POST /vault/complete.
type CompletionRequest struct {
	Model     string              `json:"model,omitempty"`
	Messages  []CompletionMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

// CompletionMessage is a single chat turn in a completion request.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the internal normalized shape for a completion
// result, mapped from the upstream's own response shape.
type CompletionResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason"`
}

// Usage is the token accounting for one completion call.
type Usage struct {
	Prompt     int64 `json:"prompt"`
	Completion int64 `json:"completion"`
	Total      int64 `json:"total"`
}

// UsageSnapshot is the response shape for GET /vault/usage.
type UsageSnapshot struct {
	Used       int64     `json:"used"`
	Limit      int64     `json:"limit"`
	ResetAt    time.Time `json:"reset_at"`
	Percentage int       `json:"percentage"`
}

// StatusSnapshot is the response shape for GET /vault/status.
type StatusSnapshot struct {
	Connected bool           `json:"connected"`
	Usage     *UsageSnapshot `json:"usage,omitempty"`
}
