// Package ratelimit defines the domain model for the adaptive,
// persistence-backed rate limiter.
package ratelimit

import "time"

// Policy configures a single named rate-limit check.
type Policy struct {
	Name               string
	MaxRequests        int
	WindowMS           int64
	ExponentialBackoff bool
	MaxBackoffMS       int64
}

// RetentionMultiple is how many windows of history are kept before a
// window row is eligible for lazy pruning.
const RetentionMultiple = 10

// Standard policies applied at the HTTP boundary. Keys are joined with a
// principal (client IP or user id) to form a rate-limit key.
var (
	PolicyLogin = Policy{
		Name: "login", MaxRequests: 10, WindowMS: 60_000,
		ExponentialBackoff: true, MaxBackoffMS: 5 * 60_000,
	}
	PolicyTOTP = Policy{
		Name: "totp", MaxRequests: 5, WindowMS: 60_000,
		ExponentialBackoff: true, MaxBackoffMS: 10 * 60_000,
	}
	PolicyDispatch = Policy{
		Name: "dispatch", MaxRequests: 60, WindowMS: 60_000,
		ExponentialBackoff: true, MaxBackoffMS: 5 * 60_000,
	}
	PolicyVaultComplete = Policy{
		Name: "vault_complete", MaxRequests: 30, WindowMS: 60_000,
		ExponentialBackoff: true, MaxBackoffMS: 10 * 60_000,
	}
)

// Window is one tumbling-bucket counter row, keyed by (key, window_start).
type Window struct {
	Key         string
	WindowStart time.Time
	Count       int64
}

// CheckResult is returned by a successful (non-rate-limited) check.
type CheckResult struct {
	Remaining int
	ResetAt   time.Time
	Limit     int
}
