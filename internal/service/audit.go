package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/domain/audit"
	"github.com/openclaw/gateway/internal/port/database"
)

// AuditService appends entries to the tamper-evident, fingerprint-chained
// audit log and serves integrity-checked queries over it.
//
// Append must be single-writer per process: the fingerprint chain requires
// reading the previous entry's fingerprint and inserting the new one as one
// logical step, so a mutex serializes calls even though the store itself
// could otherwise handle concurrent writers.
type AuditService struct {
	store database.Store
	mu    sync.Mutex
}

// NewAuditService creates a new AuditService.
func NewAuditService(store database.Store) *AuditService {
	return &AuditService{store: store}
}

// Append computes the next fingerprint in the chain and persists a new
// audit entry.
func (s *AuditService) Append(ctx context.Context, req audit.AppendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.store.LatestAuditFingerprint(ctx)
	if err != nil {
		return fmt.Errorf("read latest fingerprint: %w", err)
	}

	now := time.Now().UTC()
	entry := audit.Entry{
		ID:                  cryptoutil.NewID(),
		Action:              req.Action,
		ActorUserID:         req.ActorUserID,
		ActorEmail:          req.ActorEmail,
		IP:                  req.IP,
		UserAgent:           req.UserAgent,
		ResourceType:        req.ResourceType,
		ResourceID:          req.ResourceID,
		Details:             req.Details,
		PreviousFingerprint: prev,
		Timestamp:           now,
	}
	entry.Fingerprint = cryptoutil.Fingerprint(cryptoutil.FingerprintInput{
		ID:                  entry.ID,
		Action:              string(entry.Action),
		ActorUserID:         entry.ActorUserID,
		ResourceType:        entry.ResourceType,
		ResourceID:          entry.ResourceID,
		Details:             entry.Details,
		PreviousFingerprint: entry.PreviousFingerprint,
		TimestampISO:        entry.Timestamp.Format(time.RFC3339Nano),
	})

	if err := s.store.AppendAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Query returns a page of audit entries matching f, along with whether the
// returned page's fingerprint chain is internally consistent.
func (s *AuditService) Query(ctx context.Context, f audit.Filter, page audit.Page) (audit.QueryResult, error) {
	entries, total, err := s.store.QueryAuditEntries(ctx, f, page)
	if err != nil {
		return audit.QueryResult{}, fmt.Errorf("query audit entries: %w", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	pages := (total + limit - 1) / limit

	// Only a query without field filters returns a run of chain neighbours,
	// so only then are the links between returned entries checked.
	checkLinks := f.ActorUserID == "" && f.Action == "" && f.ResourceType == ""

	return audit.QueryResult{
		Entries:        entries,
		Total:          total,
		Pages:          pages,
		IntegrityValid: verifyChain(entries, checkLinks),
	}, nil
}

// verifyChain recomputes each entry's fingerprint from its own fields and
// checks it against the stored value. When checkLinks is set it also checks
// that each entry's previous_fingerprint matches the next (older) entry's
// fingerprint. Entries arrive newest-first, so the link to verify runs
// forward through the slice rather than backward. It only verifies the
// contiguous run given to it.
func verifyChain(entries []audit.Entry, checkLinks bool) bool {
	for i, e := range entries {
		want := cryptoutil.Fingerprint(cryptoutil.FingerprintInput{
			ID:                  e.ID,
			Action:              string(e.Action),
			ActorUserID:         e.ActorUserID,
			ResourceType:        e.ResourceType,
			ResourceID:          e.ResourceID,
			Details:             e.Details,
			PreviousFingerprint: e.PreviousFingerprint,
			TimestampISO:        e.Timestamp.Format(time.RFC3339Nano),
		})
		if want != e.Fingerprint {
			return false
		}
		if checkLinks && i < len(entries)-1 && e.PreviousFingerprint != entries[i+1].Fingerprint {
			return false
		}
	}
	return true
}
