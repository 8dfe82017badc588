// Package database defines the persistence port: the tables the gateway
// needs and the operations each subsystem performs against them.
package database

import (
	"context"
	"time"

	"github.com/openclaw/gateway/internal/domain/agent"
	"github.com/openclaw/gateway/internal/domain/audit"
	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/domain/vault"
)

// Store is the port interface for all gateway persistence. Implementations
// must serialize audit-chain append operations (find-latest-fingerprint +
// insert) as a single atomic unit; see AppendAuditEntry.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u user.User) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)

	// Sessions (server-side session records, keyed by session_id, written
	// at login and deleted at logout; request authentication does not read
	// them).
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Agents
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	CreateAgent(ctx context.Context, a agent.Agent) error
	UpdateAgent(ctx context.Context, a agent.Agent) error
	DeleteAgent(ctx context.Context, id string) error

	// Agent health
	GetAgentHealth(ctx context.Context, agentID string) (*agent.Health, error)
	UpsertAgentHealth(ctx context.Context, h agent.Health) error
	DeleteAgentHealth(ctx context.Context, agentID string) error
	ListAgentHealth(ctx context.Context) (map[string]agent.Health, error)

	// Audit chain
	LatestAuditFingerprint(ctx context.Context) (string, error)
	AppendAuditEntry(ctx context.Context, e audit.Entry) error
	QueryAuditEntries(ctx context.Context, f audit.Filter, page audit.Page) ([]audit.Entry, int, error)

	// Rate limiting
	IncrementRateLimitWindow(ctx context.Context, key string, windowStart time.Time) (int64, error)
	PruneRateLimitWindows(ctx context.Context, olderThan time.Time) error

	// Credential vault
	GetVaultConfig(ctx context.Context) (*vault.Config, error)
	UpsertVaultConfig(ctx context.Context, c vault.Config) error
}

// Session is a server-side record of an issued session token. Logout
// deletes the record, but middleware.Auth checks only the token's signature
// and expiry, so a token stays accepted until it expires.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

