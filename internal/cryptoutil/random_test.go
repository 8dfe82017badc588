package cryptoutil_test

import (
	"testing"

	"github.com/openclaw/gateway/internal/cryptoutil"
)

func TestNewID_LengthAndUniqueness(t *testing.T) {
	a := cryptoutil.NewID()
	b := cryptoutil.NewID()
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("expected 32-char hex ids, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("expected two distinct ids")
	}
}

func TestNewToken_LengthAndUniqueness(t *testing.T) {
	a := cryptoutil.NewToken()
	b := cryptoutil.NewToken()
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected 64-char hex tokens, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("expected two distinct tokens")
	}
}

func TestNewBackupCodes_CountAndUppercase(t *testing.T) {
	codes := cryptoutil.NewBackupCodes(10)
	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		if len(c) != 8 {
			t.Fatalf("expected 8-char codes, got %q", c)
		}
		if c != toUpperHex(c) {
			t.Fatalf("expected uppercase hex, got %q", c)
		}
		if seen[c] {
			t.Fatalf("expected unique backup codes, got a duplicate: %q", c)
		}
		seen[c] = true
	}
}

func toUpperHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
