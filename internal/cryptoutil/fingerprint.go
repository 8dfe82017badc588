package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// FingerprintInput is the canonical pre-image for one audit chain entry.
type FingerprintInput struct {
	ID                  string
	Action              string
	ActorUserID         string
	ResourceType        string
	ResourceID          string
	Details             map[string]any
	PreviousFingerprint string
	TimestampISO        string
}

// Fingerprint computes SHA-256 over the canonical JSON encoding of in,
// with object keys sorted so the digest is reproducible regardless of
// map iteration order.
func Fingerprint(in FingerprintInput) string {
	canonical := canonicalize(map[string]any{
		"id":                   in.ID,
		"action":               in.Action,
		"actor_user_id":        in.ActorUserID,
		"resource_type":        in.ResourceType,
		"resource_id":          in.ResourceID,
		"details":              in.Details,
		"previous_fingerprint": in.PreviousFingerprint,
		"timestamp":            in.TimestampISO,
	})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// canonicalize renders v as JSON with map keys sorted at every level, so
// two semantically equal values always produce byte-identical output.
func canonicalize(v any) []byte {
	b, _ := json.Marshal(sortedValue(v))
	return b
}

// sortedValue recursively rewrites maps into a form that json.Marshal
// renders with sorted keys (Go's encoding/json already sorts map[string]
// keys alphabetically, so this mainly normalizes nested map[string]any
// values to ensure consistent typing).
func sortedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortedValue(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return v
	}
}
