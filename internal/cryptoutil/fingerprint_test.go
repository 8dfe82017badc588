package cryptoutil

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	in := FingerprintInput{
		ID:                  "abc123",
		Action:              "auth.login",
		ActorUserID:         "user-1",
		ResourceType:        "user",
		ResourceID:          "user-1",
		Details:             map[string]any{"b": 2, "a": 1},
		PreviousFingerprint: "GENESIS",
		TimestampISO:        "2026-01-01T00:00:00Z",
	}
	in2 := in
	in2.Details = map[string]any{"a": 1, "b": 2} // same content, different insertion order

	if Fingerprint(in) != Fingerprint(in2) {
		t.Error("expected identical content in different map order to produce the same fingerprint")
	}
}

func TestFingerprintChangesOnTamper(t *testing.T) {
	in := FingerprintInput{
		ID: "abc123", Action: "auth.login", ResourceType: "user", ResourceID: "user-1",
		Details: map[string]any{"ok": true}, PreviousFingerprint: "GENESIS",
		TimestampISO: "2026-01-01T00:00:00Z",
	}
	original := Fingerprint(in)

	in.Details = map[string]any{"ok": false}
	if Fingerprint(in) == original {
		t.Error("expected fingerprint to change when details are tampered with")
	}
}
