package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openclaw/gateway/internal/adapter/totp"
	"github.com/openclaw/gateway/internal/config"
	"github.com/openclaw/gateway/internal/cryptoutil"
	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/audit"
	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/port/database"
	"github.com/openclaw/gateway/internal/tokenauth"
)

// AuthService implements the authentication core: password+TOTP login,
// intermediate and session token minting, and account management.
type AuthService struct {
	store  database.Store
	signer *tokenauth.Signer
	audit  *AuditService
	cfg    config.Auth
}

// NewAuthService creates a new AuthService.
func NewAuthService(store database.Store, signer *tokenauth.Signer, auditSvc *AuditService, cfg config.Auth) *AuthService {
	return &AuthService{store: store, signer: signer, audit: auditSvc, cfg: cfg}
}

// BootstrapAdmin creates the seeded admin user if no users exist yet.
func (s *AuthService) BootstrapAdmin(ctx context.Context) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if s.cfg.DefaultAdminPassword == "" {
		slog.Warn("no users exist and DEFAULT_ADMIN_PASSWORD is unset, skipping admin bootstrap")
		return nil
	}

	req := user.CreateRequest{
		Email:    s.cfg.DefaultAdminEmail,
		Name:     "Administrator",
		Password: s.cfg.DefaultAdminPassword,
		Role:     user.RoleAdmin,
	}
	if _, err := s.CreateUser(ctx, req); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	slog.Info("bootstrapped seeded admin user", "email", s.cfg.DefaultAdminEmail)
	return nil
}

// CreateUser registers a new user account.
func (s *AuthService) CreateUser(ctx context.Context, req user.CreateRequest) (user.User, error) {
	req.Email = user.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return user.User{}, domain.NewValidationError("%s", err.Error())
	}

	hash, err := cryptoutil.HashPassword(req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           cryptoutil.NewID(),
		Email:        req.Email,
		DisplayName:  req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login authenticates a user by email and password. When the account has
// TOTP enabled, it mints an intermediate token instead of a session.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest, ip, userAgent string) (user.LoginResult, error) {
	if err := req.Validate(); err != nil {
		return user.LoginResult{}, domain.NewValidationError("%s", err.Error())
	}

	email := user.NormalizeEmail(req.Email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		s.logLoginFailure(ctx, "", email, ip, userAgent)
		return user.LoginResult{}, domain.ErrUnauthorized
	}

	if !cryptoutil.VerifyPassword(req.Password, u.PasswordHash) {
		s.logLoginFailure(ctx, u.ID, email, ip, userAgent)
		return user.LoginResult{}, domain.ErrUnauthorized
	}

	if u.TOTPEnabled {
		tok, err := s.signer.IssueIntermediate(u.ID)
		if err != nil {
			return user.LoginResult{}, fmt.Errorf("issue intermediate token: %w", err)
		}
		return user.LoginResult{RequiresTOTP: true, IntermediateToken: tok, User: *u}, nil
	}

	return s.completeLogin(ctx, *u, ip, userAgent)
}

// VerifyTOTP completes a login started by Login, validating the
// intermediate token and either a TOTP code or an unused backup code.
func (s *AuthService) VerifyTOTP(ctx context.Context, req user.TOTPVerifyRequest, ip, userAgent string) (user.LoginResult, error) {
	if err := req.Validate(); err != nil {
		return user.LoginResult{}, domain.NewValidationError("%s", err.Error())
	}

	claims, err := s.signer.VerifyIntermediate(req.IntermediateToken)
	if err != nil {
		return user.LoginResult{}, domain.ErrUnauthorized
	}

	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return user.LoginResult{}, domain.ErrUnauthorized
	}

	now := time.Now().UTC()
	if totp.Verify(u.TOTPSecret, req.Code) {
		return s.completeLogin(ctx, *u, ip, userAgent)
	}

	updated, consumed := u.WithBackupCodeConsumed(req.Code, now)
	if !consumed {
		s.logLoginFailure(ctx, u.ID, u.Email, ip, userAgent)
		return user.LoginResult{}, domain.ErrUnauthorized
	}
	if err := s.store.UpdateUser(ctx, updated); err != nil {
		return user.LoginResult{}, fmt.Errorf("persist backup code consumption: %w", err)
	}
	return s.completeLogin(ctx, updated, ip, userAgent)
}

func (s *AuthService) completeLogin(ctx context.Context, u user.User, ip, userAgent string) (user.LoginResult, error) {
	now := time.Now().UTC()
	tok, claims, err := s.signer.IssueSession(u)
	if err != nil {
		return user.LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}

	sess := database.Session{
		ID:        claims.SessionID,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: time.Unix(claims.Expiry, 0).UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return user.LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	recorded := u.WithRecordedLogin(now)
	if err := s.store.UpdateUser(ctx, recorded); err != nil {
		slog.Warn("failed to record last_login_at", "user_id", u.ID, "error", err)
	}

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action:      audit.ActionAuthLogin,
		ActorUserID: u.ID,
		ActorEmail:  u.Email,
		IP:          ip,
		UserAgent:   userAgent,
	}); err != nil {
		slog.Warn("failed to append login audit entry", "error", err)
	}

	return user.LoginResult{
		SessionToken: tok,
		ExpiresIn:    int(tokenauth.SessionTTL.Seconds()),
		User:         recorded.ToPublic(),
	}, nil
}

func (s *AuthService) logLoginFailure(ctx context.Context, userID, email, ip, userAgent string) {
	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action:      audit.ActionAuthLoginFailed,
		ActorUserID: userID,
		ActorEmail:  email,
		IP:          ip,
		UserAgent:   userAgent,
	}); err != nil {
		slog.Warn("failed to append login-failure audit entry", "error", err)
	}
}

// Logout deletes the server-side session record identified by sessionID.
func (s *AuthService) Logout(ctx context.Context, sessionID, userID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action:      audit.ActionAuthLogout,
		ActorUserID: userID,
	}); err != nil {
		slog.Warn("failed to append logout audit entry", "error", err)
	}
	return nil
}

// Me returns the current user's public profile.
func (s *AuthService) Me(ctx context.Context, userID string) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	return u.ToPublic(), nil
}

// SetupTOTP generates a fresh TOTP secret and backup codes for userID and
// persists them immediately, enabling TOTP for the account.
func (s *AuthService) SetupTOTP(ctx context.Context, userID string) (user.TOTPSetupResponse, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.TOTPSetupResponse{}, err
	}

	enrollment, err := totp.Generate(u.Email)
	if err != nil {
		return user.TOTPSetupResponse{}, fmt.Errorf("generate totp secret: %w", err)
	}
	codes := cryptoutil.NewBackupCodes(10)

	updated := u.WithTOTPEnabled(enrollment.Secret, codes, time.Now().UTC())
	if err := s.store.UpdateUser(ctx, updated); err != nil {
		return user.TOTPSetupResponse{}, fmt.Errorf("persist totp enrollment: %w", err)
	}

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action:      audit.ActionAuthTOTPEnabled,
		ActorUserID: u.ID,
		ActorEmail:  u.Email,
	}); err != nil {
		slog.Warn("failed to append totp-enabled audit entry", "error", err)
	}

	return user.TOTPSetupResponse{
		Secret:        enrollment.Secret,
		QRCodeDataURL: enrollment.QRCodeDataURL,
		BackupCodes:   codes,
	}, nil
}

// ChangePassword verifies the current password and replaces it.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req user.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return domain.NewValidationError("%s", err.Error())
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !cryptoutil.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
		return domain.ErrUnauthorized
	}

	hash, err := cryptoutil.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	updated := u.WithPasswordHash(hash, time.Now().UTC())
	if err := s.store.UpdateUser(ctx, updated); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.audit.Append(ctx, audit.AppendRequest{
		Action:      audit.ActionAuthPasswordChanged,
		ActorUserID: u.ID,
		ActorEmail:  u.Email,
	}); err != nil {
		slog.Warn("failed to append password-changed audit entry", "error", err)
	}
	return nil
}

// ListUsers returns all registered users.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].ToPublic()
	}
	return users, nil
}
