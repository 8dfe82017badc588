package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/agent"
	"github.com/openclaw/gateway/internal/domain/audit"
	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/domain/vault"
	"github.com/openclaw/gateway/internal/port/database"
)

// fakeStore is an in-memory database.Store used to exercise the service
// layer without a real PostgreSQL instance.
type fakeStore struct {
	mu sync.Mutex

	users    map[string]user.User
	sessions map[string]database.Session

	agents       map[string]agent.Agent
	agentHealth  map[string]agent.Health

	auditEntries []audit.Entry

	windows map[string]int64

	vaultCfg *vault.Config
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]user.User{},
		sessions:    map[string]database.Session{},
		agents:      map[string]agent.Agent{},
		agentHealth: map[string]agent.Health{},
		windows:     map[string]int64{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) CreateSession(_ context.Context, s database.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*database.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) ListAgents(_ context.Context) ([]agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]agent.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) CreateAgent(_ context.Context, a agent.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents[a.ID] = a
	return nil
}

func (f *fakeStore) UpdateAgent(_ context.Context, a agent.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.agents[a.ID]; !ok {
		return domain.ErrNotFound
	}
	f.agents[a.ID] = a
	return nil
}

func (f *fakeStore) DeleteAgent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.agents, id)
	return nil
}

func (f *fakeStore) GetAgentHealth(_ context.Context, agentID string) (*agent.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.agentHealth[agentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (f *fakeStore) UpsertAgentHealth(_ context.Context, h agent.Health) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agentHealth[h.AgentID] = h
	return nil
}

func (f *fakeStore) DeleteAgentHealth(_ context.Context, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.agentHealth, agentID)
	return nil
}

func (f *fakeStore) ListAgentHealth(_ context.Context) (map[string]agent.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]agent.Health, len(f.agentHealth))
	for k, v := range f.agentHealth {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) LatestAuditFingerprint(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auditEntries) == 0 {
		return audit.GenesisFingerprint, nil
	}
	return f.auditEntries[len(f.auditEntries)-1].Fingerprint, nil
}

func (f *fakeStore) AppendAuditEntry(_ context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditEntries = append(f.auditEntries, e)
	return nil
}

func (f *fakeStore) QueryAuditEntries(_ context.Context, filter audit.Filter, page audit.Page) ([]audit.Entry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]audit.Entry, 0, len(f.auditEntries))
	for _, e := range f.auditEntries {
		if filter.ActorUserID != "" && e.ActorUserID != filter.ActorUserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		matched = append(matched, e)
	}

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	total := len(matched)
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeStore) IncrementRateLimitWindow(_ context.Context, key string, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[key]++
	return f.windows[key], nil
}

func (f *fakeStore) PruneRateLimitWindows(_ context.Context, _ time.Time) error {
	return nil
}

func (f *fakeStore) GetVaultConfig(_ context.Context) (*vault.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vaultCfg == nil {
		return nil, fmt.Errorf("no config: %w", domain.ErrNotFound)
	}
	cp := *f.vaultCfg
	return &cp, nil
}

func (f *fakeStore) UpsertVaultConfig(_ context.Context, c vault.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := c
	f.vaultCfg = &cp
	return nil
}

var _ database.Store = (*fakeStore)(nil)
