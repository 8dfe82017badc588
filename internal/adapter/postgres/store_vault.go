package postgres

import (
	"context"
	"fmt"

	"github.com/openclaw/gateway/internal/domain/vault"
)

func (s *Store) GetVaultConfig(ctx context.Context) (*vault.Config, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT api_key_ciphertext, base_url, model, max_tokens_per_request, updated_at
		FROM vault_config WHERE id = TRUE`)

	var c vault.Config
	err := row.Scan(&c.APIKeyCiphertext, &c.BaseURL, &c.Model, &c.MaxTokensPerRequest, &c.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get vault config")
	}
	return &c, nil
}

func (s *Store) UpsertVaultConfig(ctx context.Context, c vault.Config) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vault_config (id, api_key_ciphertext, base_url, model, max_tokens_per_request, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			api_key_ciphertext = $1, base_url = $2, model = $3, max_tokens_per_request = $4, updated_at = $5`,
		c.APIKeyCiphertext, c.BaseURL, c.Model, c.MaxTokensPerRequest, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert vault config: %w", err)
	}
	return nil
}
