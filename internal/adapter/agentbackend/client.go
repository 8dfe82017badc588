// Package agentbackend provides an HTTP client for dispatching chat turns
// to a registered agent's own endpoint and probing its health.
package agentbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/agent"
	"github.com/openclaw/gateway/internal/resilience"
)

// Client talks to a single backend agent's HTTP endpoint. The orchestrator
// keeps one Client (and one Breaker) per registered agent.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates a client bound to a single agent endpoint.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []agent.Message `json:"messages"`
	Options  chatOptions     `json:"options"`
	Stream   bool            `json:"stream"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

type chatResponse struct {
	Message         chatResponseMessage `json:"message"`
	PromptEvalCount int64               `json:"prompt_eval_count"`
	EvalCount       int64               `json:"eval_count"`
}

// Chat sends a dispatch turn to the agent's Ollama-compatible chat endpoint.
func (c *Client) Chat(ctx context.Context, a agent.Agent, message string, history []agent.Message) (content string, tokensUsed int64, latencyMS int64, err error) {
	req := chatRequest{
		Model:    a.Model,
		Messages: append(append([]agent.Message(nil), history...), agent.Message{Role: "user", Content: message}),
		Options:  chatOptions{Temperature: a.Temperature},
		Stream:   false,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal chat request: %w", err)
	}

	start := time.Now()
	data, err := c.doRequest(ctx, http.MethodPost, "/api/chat", body)
	latencyMS = time.Since(start).Milliseconds()
	if err != nil {
		return "", 0, latencyMS, &domain.ExternalServiceError{Service: a.Name, Detail: "chat dispatch failed", Err: err}
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", 0, latencyMS, &domain.ExternalServiceError{Service: a.Name, Detail: "malformed chat response", Err: err}
	}
	return resp.Message.Content, resp.PromptEvalCount + resp.EvalCount, latencyMS, nil
}

// Probe issues a GET against the agent's endpoint root, returning the
// round-trip latency and the response status code. err is only set for a
// transport-level failure (connection refused, timeout); a non-2xx HTTP
// response is reported via statusCode, not err, so callers can tell a
// degraded agent from an offline one.
func (c *Client) Probe(ctx context.Context) (latencyMS int64, statusCode int, err error) {
	start := time.Now()
	call := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
		if reqErr != nil {
			return fmt.Errorf("create request: %w", reqErr)
		}
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
		statusCode = resp.StatusCode
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	latencyMS = time.Since(start).Milliseconds()
	return latencyMS, statusCode, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

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
			return fmt.Errorf("agent backend error %d: %s", resp.StatusCode, string(data))
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
