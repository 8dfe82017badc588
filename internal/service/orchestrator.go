package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/gateway/internal/adapter/agentbackend"
	"github.com/openclaw/gateway/internal/config"
	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/agent"
	"github.com/openclaw/gateway/internal/domain/audit"
	"github.com/openclaw/gateway/internal/port/database"
	"github.com/openclaw/gateway/internal/resilience"
)

const (
	healthProbeTimeout = 5 * time.Second
	dispatchTimeout    = 30 * time.Second
	weightedCacheTTL   = 30 * time.Second
)

// weightedEntry augments an agent with the mutable current_weight the
// smooth weighted round-robin algorithm requires between selections.
type weightedEntry struct {
	agent         agent.Agent
	currentWeight int
}

// OrchestratorService is the Agent Orchestrator: registry CRUD, periodic
// health probing, smooth weighted round-robin dispatch selection,
// synchronous backend calls, and metric/audit reconciliation.
type OrchestratorService struct {
	store      database.Store
	audit      *AuditService
	breakerCfg config.Breaker

	mu         sync.Mutex
	cache      []weightedEntry
	cachedAt   time.Time
	cacheValid bool

	clientsMu sync.Mutex
	clients   map[string]*agentbackend.Client
}

// NewOrchestratorService creates a new OrchestratorService. breakerCfg
// configures the circuit breaker attached to each agent's persistent
// backend client.
func NewOrchestratorService(store database.Store, auditSvc *AuditService, breakerCfg config.Breaker) *OrchestratorService {
	return &OrchestratorService{
		store:      store,
		audit:      auditSvc,
		breakerCfg: breakerCfg,
		clients:    make(map[string]*agentbackend.Client),
	}
}

// clientFor returns the persistent backend client for a, creating it (with
// a fresh circuit breaker) on first use. The client and its breaker state
// are reused across dispatches and probes so the breaker can actually trip.
func (s *OrchestratorService) clientFor(a agent.Agent) *agentbackend.Client {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if c, ok := s.clients[a.ID]; ok {
		return c
	}
	c := agentbackend.New(a.Endpoint, dispatchTimeout)
	c.SetBreaker(resilience.NewBreaker(s.breakerCfg.MaxFailures, s.breakerCfg.Timeout))
	s.clients[a.ID] = c
	return c
}

// forgetClient discards any cached client for id, so a later dispatch or
// probe rebuilds one from the agent's current endpoint.
func (s *OrchestratorService) forgetClient(id string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, id)
}

// ListAgents returns every registered agent paired with its current health.
func (s *OrchestratorService) ListAgents(ctx context.Context) ([]agent.WithHealth, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	health, err := s.store.ListAgentHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agent health: %w", err)
	}

	out := make([]agent.WithHealth, 0, len(agents))
	for _, a := range agents {
		h, ok := health[a.ID]
		if !ok {
			h = agent.Health{AgentID: a.ID, SuccessRate: 1.0}
		}
		out = append(out, agent.WithHealth{Agent: a, Health: h})
	}
	return out, nil
}

// GetAgent returns a single agent by id.
func (s *OrchestratorService) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// CreateAgent registers a new backend agent and seeds its health row.
func (s *OrchestratorService) CreateAgent(ctx context.Context, req agent.CreateRequest, actorUserID, actorEmail string) (agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return agent.Agent{}, domain.NewValidationError("%s", err.Error())
	}

	now := time.Now().UTC()
	a := agent.Agent{
		ID:          cryptoutil.NewID(),
		Name:        req.Name,
		Type:        req.Type,
		Endpoint:    req.Endpoint,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Priority:    req.Priority,
		Weight:      req.Weight,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		return agent.Agent{}, fmt.Errorf("create agent: %w", err)
	}
	if err := s.store.UpsertAgentHealth(ctx, agent.Health{AgentID: a.ID, Status: agent.StatusOffline, SuccessRate: 1.0, LastCheckedAt: now}); err != nil {
		slog.Warn("failed to seed agent health row", "agent_id", a.ID, "error", err)
	}
	s.invalidateCache()

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action: audit.ActionAgentCreated, ActorUserID: actorUserID, ActorEmail: actorEmail,
		ResourceType: "agent", ResourceID: a.ID,
	}); err != nil {
		slog.Warn("failed to append agent-created audit entry", "error", err)
	}
	return a, nil
}

// UpdateAgent applies a partial update to an existing agent.
func (s *OrchestratorService) UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest, actorUserID, actorEmail string) (agent.Agent, error) {
	existing, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return agent.Agent{}, err
	}
	updated, err := req.Applied(*existing)
	if err != nil {
		return agent.Agent{}, domain.NewValidationError("%s", err.Error())
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAgent(ctx, updated); err != nil {
		return agent.Agent{}, fmt.Errorf("update agent: %w", err)
	}
	s.invalidateCache()
	s.forgetClient(updated.ID)

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action: audit.ActionAgentUpdated, ActorUserID: actorUserID, ActorEmail: actorEmail,
		ResourceType: "agent", ResourceID: updated.ID,
	}); err != nil {
		slog.Warn("failed to append agent-updated audit entry", "error", err)
	}
	return updated, nil
}

// DeleteAgent removes an agent and its health row.
func (s *OrchestratorService) DeleteAgent(ctx context.Context, id, actorUserID, actorEmail string) error {
	if err := s.store.DeleteAgent(ctx, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if err := s.store.DeleteAgentHealth(ctx, id); err != nil {
		slog.Warn("failed to delete agent health row", "agent_id", id, "error", err)
	}
	s.invalidateCache()
	s.forgetClient(id)

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action: audit.ActionAgentDeleted, ActorUserID: actorUserID, ActorEmail: actorEmail,
		ResourceType: "agent", ResourceID: id,
	}); err != nil {
		slog.Warn("failed to append agent-deleted audit entry", "error", err)
	}
	return nil
}

func (s *OrchestratorService) invalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheValid = false
}

// refreshCacheLocked reloads the healthy-agent cache from persistence. The
// caller must hold s.mu.
func (s *OrchestratorService) refreshCacheLocked(ctx context.Context) error {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	health, err := s.store.ListAgentHealth(ctx)
	if err != nil {
		return fmt.Errorf("list agent health: %w", err)
	}

	cache := make([]weightedEntry, 0, len(agents))
	for _, a := range agents {
		if h, ok := health[a.ID]; !ok || h.Status != agent.StatusOnline {
			continue
		}
		cache = append(cache, weightedEntry{agent: a})
	}
	s.cache = cache
	s.cachedAt = time.Now().UTC()
	s.cacheValid = true
	return nil
}

// selectAgent runs one round of smooth weighted round-robin selection
// over the cached healthy-agent set, refreshing the cache first if it is
// stale or has been invalidated.
func (s *OrchestratorService) selectAgent(ctx context.Context) (agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheValid || time.Since(s.cachedAt) > weightedCacheTTL {
		if err := s.refreshCacheLocked(ctx); err != nil {
			return agent.Agent{}, err
		}
	}
	if len(s.cache) == 0 {
		return agent.Agent{}, fmt.Errorf("no healthy agents available: %w", domain.ErrNotFound)
	}

	total := 0
	for _, e := range s.cache {
		total += e.agent.Weight
	}

	best := -1
	for i := range s.cache {
		s.cache[i].currentWeight += s.cache[i].agent.Weight
		if best == -1 || s.cache[i].currentWeight > s.cache[best].currentWeight {
			best = i
		}
	}
	s.cache[best].currentWeight -= total
	return s.cache[best].agent, nil
}

// Dispatch selects (or honors an explicit agent_id) and synchronously
// calls a backend agent, reconciling metrics and appending an audit entry.
func (s *OrchestratorService) Dispatch(ctx context.Context, req agent.DispatchRequest, actorUserID, actorEmail, ip string) (agent.DispatchResult, error) {
	var a agent.Agent
	if req.AgentID != "" {
		got, err := s.store.GetAgent(ctx, req.AgentID)
		if err != nil {
			return agent.DispatchResult{}, err
		}
		a = *got
	} else {
		selected, err := s.selectAgent(ctx)
		if err != nil {
			return agent.DispatchResult{}, err
		}
		a = selected
	}

	dctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	client := s.clientFor(a)
	content, tokensUsed, latencyMS, callErr := client.Chat(dctx, a, req.Message, req.Context)

	if err := s.reconcileHealth(ctx, a.ID, callErr == nil, latencyMS); err != nil {
		slog.Warn("failed to reconcile agent health after dispatch", "agent_id", a.ID, "error", err)
	}

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action: audit.ActionAgentRequest, ActorUserID: actorUserID, ActorEmail: actorEmail, IP: ip,
		ResourceType: "agent", ResourceID: a.ID,
	}); err != nil {
		return agent.DispatchResult{}, fmt.Errorf("append dispatch audit entry: %w", err)
	}

	if callErr != nil {
		return agent.DispatchResult{}, callErr
	}

	return agent.DispatchResult{
		RequestID:  cryptoutil.NewID(),
		AgentID:    a.ID,
		SessionID:  req.SessionID,
		Message:    content,
		Model:      a.Model,
		TokensUsed: tokensUsed,
		LatencyMS:  latencyMS,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (s *OrchestratorService) reconcileHealth(ctx context.Context, agentID string, success bool, latencyMS int64) error {
	h, err := s.store.GetAgentHealth(ctx, agentID)
	if err != nil {
		h = &agent.Health{AgentID: agentID, SuccessRate: 1.0}
	}
	updated := h.WithRequestOutcome(success, latencyMS, time.Now().UTC())
	return s.store.UpsertAgentHealth(ctx, updated)
}

// ProbeAll issues a health probe against every registered agent. It is
// intended to be invoked every 30 seconds by a background goroutine.
func (s *OrchestratorService) ProbeAll(ctx context.Context) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		slog.Error("health probe: failed to list agents", "error", err)
		return
	}
	for _, a := range agents {
		s.probeOne(ctx, a)
	}
}

func (s *OrchestratorService) probeOne(ctx context.Context, a agent.Agent) {
	pctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	client := s.clientFor(a)
	latencyMS, statusCode, err := client.Probe(pctx)
	status := agent.StatusOffline
	var details string

	switch {
	case err != nil:
		details = err.Error()
	case statusCode >= 200 && statusCode < 300:
		status = agent.StatusOnline
	default:
		status = agent.StatusDegraded
		details = fmt.Sprintf("probe returned HTTP %d", statusCode)
	}

	h, getErr := s.store.GetAgentHealth(ctx, a.ID)
	if getErr != nil {
		h = &agent.Health{AgentID: a.ID, SuccessRate: 1.0}
	}
	updated := h.WithObservedProbe(status, latencyMS, details, time.Now().UTC()).WithRecomputedSuccessRate()
	if err := s.store.UpsertAgentHealth(ctx, updated); err != nil {
		slog.Warn("failed to persist health probe result", "agent_id", a.ID, "error", err)
	}
}

// ProbeAgent forces an immediate health probe of a single agent and
// returns the resulting health record.
func (s *OrchestratorService) ProbeAgent(ctx context.Context, id string) (agent.Health, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return agent.Health{}, err
	}
	s.probeOne(ctx, *a)
	h, err := s.store.GetAgentHealth(ctx, id)
	if err != nil {
		return agent.Health{}, fmt.Errorf("get agent health: %w", err)
	}
	return *h, nil
}

// StartHealthProbeLoop runs ProbeAll every interval until ctx is cancelled.
func (s *OrchestratorService) StartHealthProbeLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ProbeAll(ctx)
				s.invalidateCache()
			}
		}
	}()
}
