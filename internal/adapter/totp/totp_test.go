package totp_test

import (
	"strings"
	"testing"
	"time"

	pquernaotp "github.com/pquerna/otp/totp"

	"github.com/openclaw/gateway/internal/adapter/totp"
)

func TestGenerate_ProducesSecretAndDataURL(t *testing.T) {
	enrollment, err := totp.Generate("admin@peanut.local")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if enrollment.Secret == "" {
		t.Fatal("expected a non-empty secret")
	}
	if !strings.HasPrefix(enrollment.QRCodeDataURL, "data:image/png;base64,") {
		t.Fatalf("expected a PNG data URL, got %q", enrollment.QRCodeDataURL[:30])
	}
}

func TestVerify_AcceptsCurrentCode(t *testing.T) {
	enrollment, err := totp.Generate("admin@peanut.local")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	code, err := pquernaotp.GenerateCode(enrollment.Secret, time.Now().UTC())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	if !totp.Verify(enrollment.Secret, code) {
		t.Fatal("expected the freshly generated code to verify")
	}
}

func TestVerify_RejectsWrongCode(t *testing.T) {
	enrollment, err := totp.Generate("admin@peanut.local")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if totp.Verify(enrollment.Secret, "000000") {
		t.Fatal("expected an arbitrary code to be rejected (astronomically unlikely to collide)")
	}
}

func TestVerify_AcceptsAdjacentStepWithinSkew(t *testing.T) {
	enrollment, err := totp.Generate("admin@peanut.local")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	oneStepAgo := time.Now().UTC().Add(-totp.Period * time.Second)
	code, err := pquernaotp.GenerateCode(enrollment.Secret, oneStepAgo)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	if !totp.Verify(enrollment.Secret, code) {
		t.Fatal("expected a code from one step ago to verify within the skew window")
	}
}
