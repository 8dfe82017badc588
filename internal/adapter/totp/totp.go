// Package totp wraps RFC 6238 time-based one-time password enrollment and
// verification, plus QR code rendering for the enrollment step.
package totp

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

// Issuer is the label shown in authenticator apps alongside the account email.
const Issuer = "AI Agent Gateway"

// Period is the TOTP step size in seconds, per RFC 6238's default.
const Period = 30

// Skew is the number of adjacent time steps accepted on either side of
// the current one, absorbing clock drift between the server and the
// authenticator app.
const Skew = 1

// Enrollment is the result of generating a new TOTP secret for a user.
type Enrollment struct {
	Secret        string
	QRCodeDataURL string
}

// Generate creates a new TOTP secret for accountEmail and renders its
// enrollment QR code as a base64 PNG data URL.
func Generate(accountEmail string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: accountEmail,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return Enrollment{}, fmt.Errorf("render totp qr code: %w", err)
	}

	return Enrollment{
		Secret:        key.Secret(),
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Verify reports whether code is valid for secret at the current time,
// within the configured clock-skew window.
func Verify(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
