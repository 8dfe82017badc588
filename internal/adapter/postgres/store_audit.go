package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openclaw/gateway/internal/domain/audit"
)

// LatestAuditFingerprint returns the fingerprint of the most recently
// appended entry, or audit.GenesisFingerprint if the chain is empty.
func (s *Store) LatestAuditFingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.pool.QueryRow(ctx, `SELECT fingerprint FROM audit_log ORDER BY seq DESC LIMIT 1`).Scan(&fp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.GenesisFingerprint, nil
		}
		return "", fmt.Errorf("latest audit fingerprint: %w", err)
	}
	return fp, nil
}

// AppendAuditEntry inserts e. Callers are expected to have computed
// e.Fingerprint from e.PreviousFingerprint, which in turn must be read
// from LatestAuditFingerprint under the same single-writer serialization
// the audit service imposes; this method itself does not re-derive or
// re-verify the chain.
func (s *Store) AppendAuditEntry(ctx context.Context, e audit.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, action, actor_user_id, actor_email, ip, user_agent, resource_type, resource_id, details, previous_fingerprint, fingerprint, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Action, e.ActorUserID, e.ActorEmail, e.IP, e.UserAgent, e.ResourceType, e.ResourceID, details, e.PreviousFingerprint, e.Fingerprint, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) QueryAuditEntries(ctx context.Context, f audit.Filter, page audit.Page) ([]audit.Entry, int, error) {
	conditions := []string{"1 = 1"}
	args := []any{}
	argIdx := 1

	if f.ActorUserID != "" {
		conditions = append(conditions, fmt.Sprintf("actor_user_id = $%d", argIdx))
		args = append(args, f.ActorUserID)
		argIdx++
	}
	if f.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, string(f.Action))
		argIdx++
	}
	if f.ResourceType != "" {
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", argIdx))
		args = append(args, f.ResourceType)
		argIdx++
	}
	if !f.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argIdx))
		args = append(args, f.From)
		argIdx++
	}
	if !f.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argIdx))
		args = append(args, f.To)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM audit_log WHERE %s`, where)
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	querySQL := fmt.Sprintf(`
		SELECT id, action, actor_user_id, actor_email, ip, user_agent, resource_type, resource_id, details, previous_fingerprint, fingerprint, timestamp
		FROM audit_log WHERE %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorUserID, &e.ActorEmail, &e.IP, &e.UserAgent, &e.ResourceType, &e.ResourceID, &details, &e.PreviousFingerprint, &e.Fingerprint, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return orEmpty(entries), total, rows.Err()
}
