// Package tokenauth signs and verifies the gateway's session and
// intermediate authentication tokens. Both are HMAC-SHA256 signed,
// base64url-encoded JSON payloads in the same compact form as a JWT,
// scoped down to the claims the session and TOTP flows actually need.
package tokenauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/domain/user"
)

const (
	// SessionTTL is how long a session token remains valid after issue.
	SessionTTL = 8 * time.Hour
	// IntermediateTTL is how long an intermediate token remains valid.
	IntermediateTTL = 10 * time.Minute
)

var header = encodeSegment([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Signer mints and verifies session and intermediate tokens using a
// single HMAC secret.
type Signer struct {
	secret []byte
}

// NewSigner builds a Signer from the configured session secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// envelope is the common wire shape: a type-tagged claims object, so intermediate and session tokens can never be confused for
// one another even though both are signed with the same secret.
type envelope struct {
	Typ    string          `json:"typ"`
	Claims json.RawMessage `json:"claims"`
}

const (
	typSession      = "session"
	typIntermediate = "intermediate"
)

// IssueSession mints a session token for u, valid for SessionTTL.
func (s *Signer) IssueSession(u user.User) (string, user.SessionClaims, error) {
	now := time.Now().UTC()
	claims := user.SessionClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: cryptoutil.NewToken(),
		IssuedAt:  now.Unix(),
		Expiry:    now.Add(SessionTTL).Unix(),
	}
	tok, err := s.sign(typSession, claims)
	return tok, claims, err
}

// VerifySession validates a session token and returns its claims.
func (s *Signer) VerifySession(token string) (user.SessionClaims, error) {
	var claims user.SessionClaims
	if err := s.verify(typSession, token, &claims); err != nil {
		return user.SessionClaims{}, err
	}
	if time.Now().UTC().Unix() > claims.Expiry {
		return user.SessionClaims{}, errors.New("session token expired")
	}
	return claims, nil
}

// IssueIntermediate mints a short-lived intermediate token for userID,
// to be presented only to the TOTP verification endpoint.
func (s *Signer) IssueIntermediate(userID string) (string, error) {
	now := time.Now().UTC()
	claims := user.IntermediateClaims{
		UserID:   userID,
		Nonce:    cryptoutil.NewToken(),
		IssuedAt: now.Unix(),
		Expiry:   now.Add(IntermediateTTL).Unix(),
	}
	return s.sign(typIntermediate, claims)
}

// VerifyIntermediate validates an intermediate token and returns its
// claims. Expired or malformed tokens return an error.
func (s *Signer) VerifyIntermediate(token string) (user.IntermediateClaims, error) {
	var claims user.IntermediateClaims
	if err := s.verify(typIntermediate, token, &claims); err != nil {
		return user.IntermediateClaims{}, err
	}
	if time.Now().UTC().Unix() > claims.Expiry {
		return user.IntermediateClaims{}, errors.New("intermediate token expired")
	}
	return claims, nil
}

func (s *Signer) sign(typ string, claims any) (string, error) {
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	env, err := json.Marshal(envelope{Typ: typ, Claims: claimsJSON})
	if err != nil {
		return "", err
	}
	payload := encodeSegment(env)
	signingInput := header + "." + payload
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := encodeSegment(mac.Sum(nil))
	return signingInput + "." + sig, nil
}

func (s *Signer) verify(wantTyp, token string, out any) error {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return errors.New("malformed token")
	}
	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := encodeSegment(mac.Sum(nil))
	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return errors.New("invalid signature")
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	if env.Typ != wantTyp {
		return errors.New("unexpected token type")
	}
	return json.Unmarshal(env.Claims, out)
}

func encodeSegment(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func decodeSegment(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
