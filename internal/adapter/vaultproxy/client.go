// Package vaultproxy provides an HTTP client for the upstream completion
// API that the credential vault proxies requests to.
package vaultproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/vault"
	"github.com/openclaw/gateway/internal/resilience"
)

// Client talks to the upstream completion API on behalf of the vault.
type Client struct {
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates an upstream client with the given timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type upstreamRequest struct {
	Model     string                    `json:"model"`
	Messages  []vault.CompletionMessage `json:"messages"`
	MaxTokens int                       `json:"max_tokens"`
}

type upstreamResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a chat completion request to baseURL using apiKey,
// returning the normalized response.
func (c *Client) Complete(ctx context.Context, baseURL, apiKey string, req vault.CompletionRequest) (*vault.CompletionResponse, error) {
	body, err := json.Marshal(upstreamRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	data, err := c.doRequest(ctx, baseURL, apiKey, "/v1/messages", body)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "vault-upstream", Detail: "completion request failed", Err: err}
	}

	var resp upstreamResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &domain.ExternalServiceError{Service: "vault-upstream", Detail: "malformed completion response", Err: err}
	}

	var text string
	if len(resp.Content) > 0 {
		text = resp.Content[0].Text
	}

	return &vault.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      text,
		FinishReason: resp.StopReason,
		Usage: vault.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

type usageResponse struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Usage fetches the upstream account's current usage and quota.
func (c *Client) Usage(ctx context.Context, baseURL, apiKey string) (used, limit int64, err error) {
	data, err := c.doRequest(ctx, baseURL, apiKey, "/v1/usage", nil)
	if err != nil {
		return 0, 0, &domain.ExternalServiceError{Service: "vault-upstream", Detail: "usage probe failed", Err: err}
	}
	var resp usageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, 0, &domain.ExternalServiceError{Service: "vault-upstream", Detail: "malformed usage response", Err: err}
	}
	return resp.Used, resp.Limit, nil
}

func (c *Client) doRequest(ctx context.Context, baseURL, apiKey, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		method := http.MethodGet
		if body != nil {
			bodyReader = bytes.NewReader(body)
			method = http.MethodPost
		}

		req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("upstream API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
