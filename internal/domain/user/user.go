// Package user defines the user domain model for authentication and authorization.
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Role represents the authorization level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// ValidRoles is the set of all valid user roles.
var ValidRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// MinPasswordLength is the only composition rule the password policy
// imposes on new and changed passwords.
const MinPasswordLength = 12

// User is the persisted account record.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"name"`
	PasswordHash string    `json:"-"` // "salt_hex:derived_hex", never serialized
	Role         Role      `json:"role"`
	TOTPSecret   string    `json:"-"` // base32, empty when TOTP is not enabled
	TOTPEnabled  bool      `json:"totp_enabled"`
	BackupCodes  []string  `json:"-"` // uppercase hex, consumed on use
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
}

// WithRecordedLogin returns a copy of u with LastLoginAt set to now.
func (u User) WithRecordedLogin(now time.Time) User {
	u.LastLoginAt = now
	u.UpdatedAt = now
	return u
}

// WithTOTPEnabled returns a copy of u with TOTP enrolled.
func (u User) WithTOTPEnabled(secret string, backupCodes []string, now time.Time) User {
	u.TOTPSecret = secret
	u.TOTPEnabled = true
	u.BackupCodes = append([]string(nil), backupCodes...)
	u.UpdatedAt = now
	return u
}

// WithTOTPDisabled returns a copy of u with TOTP enrollment cleared.
func (u User) WithTOTPDisabled(now time.Time) User {
	u.TOTPSecret = ""
	u.TOTPEnabled = false
	u.BackupCodes = nil
	u.UpdatedAt = now
	return u
}

// WithBackupCodeConsumed returns a copy of u with the matching backup code
// removed. ok is false if code was not present among the remaining codes.
func (u User) WithBackupCodeConsumed(code string, now time.Time) (out User, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	remaining := make([]string, 0, len(u.BackupCodes))
	for _, c := range u.BackupCodes {
		if c == code && !ok {
			ok = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !ok {
		return u, false
	}
	u.BackupCodes = remaining
	u.UpdatedAt = now
	return u, true
}

// WithPasswordHash returns a copy of u with a new password hash.
func (u User) WithPasswordHash(hash string, now time.Time) User {
	u.PasswordHash = hash
	u.UpdatedAt = now
	return u
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email is RFC-shaped.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 12 characters")
	}
	return nil
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Role     Role   `json:"role"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if !ValidRoles[r.Role] {
		return errors.New("invalid role: must be admin, operator, or viewer")
	}
	return nil
}

// UpdateRequest is the input for updating an existing user.
type UpdateRequest struct {
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

// LoginRequest is the input for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResult is the internal outcome of a login attempt, before it is
// shaped into an HTTP response. Exactly one of SessionToken or
// IntermediateToken is set.
type LoginResult struct {
	RequiresTOTP     bool
	IntermediateToken string //nolint:gosec // issued token, not a hardcoded secret
	SessionToken     string //nolint:gosec // issued token, not a hardcoded secret
	ExpiresIn        int
	User             User
}

// TOTPVerifyRequest is the input for POST /auth/totp/verify.
type TOTPVerifyRequest struct {
	IntermediateToken string `json:"temp_token"`
	Code              string `json:"totp_code"`
}

// Validate checks that the TOTPVerifyRequest has all required fields.
func (r *TOTPVerifyRequest) Validate() error {
	if r.IntermediateToken == "" {
		return errors.New("temp_token is required")
	}
	if r.Code == "" {
		return errors.New("totp_code is required")
	}
	return nil
}

// ChangePasswordRequest is the input for POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate checks that the ChangePasswordRequest has all required fields.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return errors.New("current_password is required")
	}
	if err := ValidatePassword(r.NewPassword); err != nil {
		return err
	}
	return nil
}

// TOTPSetupResponse is returned by POST /auth/totp/setup.
type TOTPSetupResponse struct {
	Secret       string   `json:"secret"`
	QRCodeDataURL string  `json:"qr_code_data_url"`
	BackupCodes  []string `json:"backup_codes"`
}

// SessionClaims is the payload carried by the auth_token session cookie.
type SessionClaims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
	IssuedAt  int64  `json:"iat"`
	Expiry    int64  `json:"exp"`
}

// IntermediateClaims is the payload carried by the short-lived token
// minted between password verification and TOTP verification. It must
// never be accepted anywhere except the TOTP verification endpoint.
type IntermediateClaims struct {
	UserID   string `json:"sub"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
}

// ToPublic strips sensitive fields for boundary responses. It is an alias
// of User with the same JSON tags; callers render it directly since
// PasswordHash/TOTPSecret/BackupCodes already carry json:"-".
func (u User) ToPublic() User {
	u.PasswordHash = ""
	u.TOTPSecret = ""
	u.BackupCodes = nil
	return u
}
