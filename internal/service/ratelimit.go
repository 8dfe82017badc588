package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/ratelimit"
	"github.com/openclaw/gateway/internal/port/database"
)

// backoffStepSize is the number of requests-over-limit that doubles the
// advertised backoff interval.
const backoffStepSize = 10

// RateLimiterService enforces the gateway's named, persistence-backed
// rate-limit policies using fixed windows with exponential backoff once a
// principal has exceeded a policy repeatedly.
type RateLimiterService struct {
	store database.Store
}

// NewRateLimiterService creates a new RateLimiterService.
func NewRateLimiterService(store database.Store) *RateLimiterService {
	return &RateLimiterService{store: store}
}

// Check increments the window counter for (policy, principal) and returns
// a *domain.RateLimitedError if the policy's limit is exceeded. With
// exponential backoff, the advertised interval doubles for every
// backoffStepSize requests over the limit in the current window, up to the
// policy's MaxBackoffMS ceiling.
func (s *RateLimiterService) Check(ctx context.Context, policy ratelimit.Policy, principal string) (ratelimit.CheckResult, error) {
	now := time.Now().UTC()
	windowMS := policy.WindowMS
	windowStart := time.UnixMilli(now.UnixMilli() / windowMS * windowMS).UTC()
	key := policy.Name + ":" + principal

	count, err := s.store.IncrementRateLimitWindow(ctx, key, windowStart)
	if err != nil {
		return ratelimit.CheckResult{}, fmt.Errorf("increment rate limit window: %w", err)
	}

	resetAt := windowStart.Add(time.Duration(windowMS) * time.Millisecond)

	if count <= int64(policy.MaxRequests) {
		return ratelimit.CheckResult{
			Remaining: policy.MaxRequests - int(count),
			ResetAt:   resetAt,
			Limit:     policy.MaxRequests,
		}, nil
	}

	retryAfter := int(time.Until(resetAt).Seconds())
	if policy.ExponentialBackoff {
		over := (count - int64(policy.MaxRequests)) / backoffStepSize
		backoffMS := windowMS << over // doubles every backoffStepSize requests over the limit
		if backoffMS > policy.MaxBackoffMS || backoffMS <= 0 {
			backoffMS = policy.MaxBackoffMS
		}
		retryAfter = int(backoffMS / 1000)
	}
	if retryAfter < 1 {
		retryAfter = 1
	}

	return ratelimit.CheckResult{}, &domain.RateLimitedError{RetryAfterSeconds: retryAfter}
}

// Prune deletes rate-limit window rows older than the retention horizon
// for the given policy. Intended to be called periodically by a
// background goroutine, not on the request path.
func (s *RateLimiterService) Prune(ctx context.Context, policy ratelimit.Policy) error {
	horizon := time.Duration(policy.WindowMS) * time.Millisecond * ratelimit.RetentionMultiple
	return s.store.PruneRateLimitWindows(ctx, time.Now().UTC().Add(-horizon))
}
