package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openclaw/gateway/internal/adapter/vaultproxy"
	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/vault"
	"github.com/openclaw/gateway/internal/port/database"
)

const completionTimeout = 60 * time.Second

// VaultService is the Credential Vault: it holds one upstream API
// credential encrypted at rest and proxies completion/usage calls to it.
// The decryption key lives only in process memory, sourced from the
// environment at startup; it is never read from or written to the store.
type VaultService struct {
	store  database.Store
	client *vaultproxy.Client
	key    []byte
}

// NewVaultService creates a new VaultService. key must be exactly
// cryptoutil.KeySize bytes, already derived from VAULT_KEY_HEX.
func NewVaultService(store database.Store, client *vaultproxy.Client, key []byte) *VaultService {
	return &VaultService{store: store, client: client, key: key}
}

// GetConfig returns the boundary-safe view of the vault's configuration,
// seeding documented defaults if none has been persisted yet.
func (s *VaultService) GetConfig(ctx context.Context) (vault.ConfigView, error) {
	c, err := s.currentOrDefault(ctx)
	if err != nil {
		return vault.ConfigView{}, err
	}
	return c.ToView(), nil
}

func (s *VaultService) currentOrDefault(ctx context.Context) (vault.Config, error) {
	c, err := s.store.GetVaultConfig(ctx)
	if err == nil {
		return *c, nil
	}
	if !isNotFound(err) {
		return vault.Config{}, fmt.Errorf("get vault config: %w", err)
	}
	return vault.Config{
		BaseURL:             vault.DefaultBaseURL,
		Model:               vault.DefaultModel,
		MaxTokensPerRequest: vault.DefaultMaxTokensPerRequest,
	}, nil
}

// UpdateConfig upserts the vault configuration. When req.APIKey is nil the
// existing ciphertext is retained; otherwise the new key is encrypted and
// replaces it.
func (s *VaultService) UpdateConfig(ctx context.Context, req vault.ConfigUpdateRequest) (vault.ConfigView, error) {
	current, err := s.currentOrDefault(ctx)
	if err != nil {
		return vault.ConfigView{}, err
	}

	ciphertext := current.APIKeyCiphertext
	if req.APIKey != nil {
		encrypted, err := cryptoutil.Encrypt([]byte(*req.APIKey), s.key)
		if err != nil {
			return vault.ConfigView{}, fmt.Errorf("encrypt api key: %w", err)
		}
		ciphertext = encrypted
	}

	updated := vault.Config{
		APIKeyCiphertext:    ciphertext,
		BaseURL:             req.BaseURL,
		Model:               req.Model,
		MaxTokensPerRequest: req.MaxTokensPerRequest,
		UpdatedAt:           time.Now().UTC(),
	}
	if err := s.store.UpsertVaultConfig(ctx, updated); err != nil {
		return vault.ConfigView{}, fmt.Errorf("upsert vault config: %w", err)
	}
	return updated.ToView(), nil
}

// Complete decrypts the stored credential and proxies a normalized
// completion request to the upstream API, clamping max_tokens to the
// configured ceiling.
func (s *VaultService) Complete(ctx context.Context, req vault.CompletionRequest) (vault.CompletionResponse, error) {
	c, err := s.currentOrDefault(ctx)
	if err != nil {
		return vault.CompletionResponse{}, err
	}
	if !c.HasAPIKey() {
		return vault.CompletionResponse{}, &domain.ExternalServiceError{Service: "vault", Detail: "no api key configured"}
	}

	apiKey, err := cryptoutil.Decrypt(c.APIKeyCiphertext, s.key)
	if err != nil {
		return vault.CompletionResponse{}, &domain.ExternalServiceError{Service: "vault", Detail: "decrypt api key", Err: err}
	}

	if req.Model == "" {
		req.Model = c.Model
	}
	if req.MaxTokens <= 0 || req.MaxTokens > c.MaxTokensPerRequest {
		req.MaxTokens = c.MaxTokensPerRequest
	}

	cctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	resp, err := s.client.Complete(cctx, c.BaseURL, string(apiKey), req)
	if err != nil {
		return vault.CompletionResponse{}, err
	}
	return *resp, nil
}

// Usage returns the upstream account's usage snapshot.
func (s *VaultService) Usage(ctx context.Context) (vault.UsageSnapshot, error) {
	c, err := s.currentOrDefault(ctx)
	if err != nil {
		return vault.UsageSnapshot{}, err
	}
	if !c.HasAPIKey() {
		return vault.UsageSnapshot{}, &domain.ExternalServiceError{Service: "vault", Detail: "no api key configured"}
	}

	apiKey, err := cryptoutil.Decrypt(c.APIKeyCiphertext, s.key)
	if err != nil {
		return vault.UsageSnapshot{}, &domain.ExternalServiceError{Service: "vault", Detail: "decrypt api key", Err: err}
	}

	used, limit, err := s.client.Usage(ctx, c.BaseURL, string(apiKey))
	if err != nil {
		return vault.UsageSnapshot{}, err
	}

	percentage := 0
	if limit > 0 {
		percentage = int(math.Round(float64(used) / float64(limit) * 100))
	}
	return vault.UsageSnapshot{
		Used:       used,
		Limit:      limit,
		ResetAt:    nextMonthStart(time.Now().UTC()),
		Percentage: percentage,
	}, nil
}

// Status reports whether the vault can currently reach the upstream API.
// It never leaks decryption or connectivity errors to the boundary.
func (s *VaultService) Status(ctx context.Context) vault.StatusSnapshot {
	c, err := s.currentOrDefault(ctx)
	if err != nil || !c.HasAPIKey() {
		return vault.StatusSnapshot{Connected: false}
	}

	usage, err := s.Usage(ctx)
	if err != nil {
		return vault.StatusSnapshot{Connected: false}
	}
	return vault.StatusSnapshot{Connected: true, Usage: &usage}
}

func nextMonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
