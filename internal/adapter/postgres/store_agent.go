package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/agent"
)

const selectAgentColumns = `id, name, type, endpoint, model, max_tokens, temperature, priority, weight, tags, metadata, created_at, updated_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	var metadata []byte
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Endpoint, &a.Model, &a.MaxTokens, &a.Temperature, &a.Priority, &a.Weight, &a.Tags, &metadata, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return agent.Agent{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return agent.Agent{}, fmt.Errorf("unmarshal agent metadata: %w", err)
		}
	}
	return a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectAgentColumns+` FROM agents ORDER BY priority DESC, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return orEmpty(agents), rows.Err()
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectAgentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

func (s *Store) CreateAgent(ctx context.Context, a agent.Agent) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal agent metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO agents (id, name, type, endpoint, model, max_tokens, temperature, priority, weight, tags, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Name, a.Type, a.Endpoint, a.Model, a.MaxTokens, a.Temperature, a.Priority, a.Weight, pgTextArray(a.Tags), metadata, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *Store) UpdateAgent(ctx context.Context, a agent.Agent) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal agent metadata: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE agents SET name = $2, endpoint = $3, model = $4, max_tokens = $5, temperature = $6, priority = $7, weight = $8, tags = $9, metadata = $10, updated_at = $11
		WHERE id = $1`,
		a.ID, a.Name, a.Endpoint, a.Model, a.MaxTokens, a.Temperature, a.Priority, a.Weight, pgTextArray(a.Tags), metadata, a.UpdatedAt,
	)
	return execExpectOne(tag, err, "update agent %s", a.ID)
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete agent %s", id)
}

func (s *Store) GetAgentHealth(ctx context.Context, agentID string) (*agent.Health, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT agent_id, status, latency_ms, success_rate, request_count, error_count, last_checked_at, details
		FROM agent_health WHERE agent_id = $1`, agentID)

	var h agent.Health
	err := row.Scan(&h.AgentID, &h.Status, &h.LatencyMS, &h.SuccessRate, &h.RequestCount, &h.ErrorCount, &h.LastCheckedAt, &h.Details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get agent health %s: %w", agentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent health: %w", err)
	}
	return &h, nil
}

func (s *Store) UpsertAgentHealth(ctx context.Context, h agent.Health) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_health (agent_id, status, latency_ms, success_rate, request_count, error_count, last_checked_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (agent_id) DO UPDATE SET
			status = $2, latency_ms = $3, success_rate = $4, request_count = $5, error_count = $6, last_checked_at = $7, details = $8`,
		h.AgentID, h.Status, h.LatencyMS, h.SuccessRate, h.RequestCount, h.ErrorCount, h.LastCheckedAt, h.Details,
	)
	if err != nil {
		return fmt.Errorf("upsert agent health: %w", err)
	}
	return nil
}

func (s *Store) DeleteAgentHealth(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agent_health WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("delete agent health: %w", err)
	}
	return nil
}

func (s *Store) ListAgentHealth(ctx context.Context) (map[string]agent.Health, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, status, latency_ms, success_rate, request_count, error_count, last_checked_at, details
		FROM agent_health`)
	if err != nil {
		return nil, fmt.Errorf("list agent health: %w", err)
	}
	defer rows.Close()

	out := make(map[string]agent.Health)
	for rows.Next() {
		var h agent.Health
		if err := rows.Scan(&h.AgentID, &h.Status, &h.LatencyMS, &h.SuccessRate, &h.RequestCount, &h.ErrorCount, &h.LastCheckedAt, &h.Details); err != nil {
			return nil, fmt.Errorf("scan agent health: %w", err)
		}
		out[h.AgentID] = h
	}
	return out, rows.Err()
}
