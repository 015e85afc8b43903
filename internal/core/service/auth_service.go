package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesaops/identity-api/internal/api/metrics"
	"github.com/mesaops/identity-api/internal/core/device"
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

// dummyHash is compared against when the email is unknown, so the response
// time does not reveal whether the account exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// AuthConfig captures the issuer tunables, injected at construction.
type AuthConfig struct {
	JWTSecret    string
	TempTokenTTL time.Duration
	EnforceOTP   bool
}

// AuthService implements the step-up authentication state machine:
// credential validation, temp bridge token issuance, OTP orchestration, and
// the single session-creating completion of each login ceremony.
type AuthService struct {
	users    ports.UserRepository
	otp      ports.OTPService
	sessions ports.SessionService
	audit    ports.AuditSink
	geo      ports.GeoResolver
	clock    ports.Clock
	cfg      AuthConfig
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	otp ports.OTPService,
	sessions ports.SessionService,
	audit ports.AuditSink,
	geo ports.GeoResolver,
	clock ports.Clock,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.TempTokenTTL <= 0 || cfg.TempTokenTTL > 15*time.Minute {
		cfg.TempTokenTTL = 15 * time.Minute
	}
	return &AuthService{
		users:    users,
		otp:      otp,
		sessions: sessions,
		audit:    audit,
		geo:      geo,
		clock:    clock,
		cfg:      cfg,
		log:      log,
	}
}

// Login validates primary credentials. When step-up is required it returns a
// signed temp token bridging to the OTP step; otherwise the session is
// created directly and the ceremony is complete.
func (s *AuthService) Login(ctx context.Context, email, password string, client ports.ClientInfo) (*ports.LoginOutcome, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Equalize timing with the known-user path; the caller never
			// learns whether the account exists.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.recordAudit(ctx, "", email, client, domain.LoginFailure)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordAudit(ctx, user.ID, email, client, domain.LoginFailure)
		return nil, domain.ErrInvalidCredentials
	}

	if user.Disabled {
		s.recordAudit(ctx, user.ID, email, client, domain.LoginFailure)
		return nil, domain.ErrAccountDisabled
	}

	// Step-up is skipped only when both the account flag and the
	// system-wide enforcement setting allow it.
	requiresOTP := user.OTPEnabled || s.cfg.EnforceOTP

	if requiresOTP {
		token, err := s.signTempToken(user.ID, user.Role)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		metrics.LoginsTotal.WithLabelValues("otp_pending").Inc()
		return &ports.LoginOutcome{
			RequiresOTP:  true,
			TempToken:    token,
			Role:         user.Role,
			LandingRoute: user.Role.LandingRoute(),
		}, nil
	}

	session, rawToken, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.recordAudit(ctx, user.ID, email, client, domain.LoginSuccess)
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return &ports.LoginOutcome{
		Role:         user.Role,
		LandingRoute: user.Role.LandingRoute(),
		Session:      session,
		SessionToken: rawToken,
	}, nil
}

// IssueOTP creates (or supersedes) the challenge referenced by a pending
// login and triggers code delivery.
func (s *AuthService) IssueOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose) error {
	pending, err := s.ParseTempToken(tempToken)
	if err != nil {
		return err
	}
	if !pending.RequiresOTP {
		return domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, pending.UserID)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	if _, err := s.otp.Issue(ctx, user.ID, user.Email, purpose); err != nil {
		return err
	}
	return nil
}

// VerifyOTP checks the candidate code and completes the ceremony. Exactly
// one session is created per successful verification.
func (s *AuthService) VerifyOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose, code string, client ports.ClientInfo) (*ports.SessionGrant, error) {
	pending, err := s.ParseTempToken(tempToken)
	if err != nil {
		return nil, err
	}
	if !pending.RequiresOTP {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, pending.UserID)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	if err := s.otp.Verify(ctx, user.ID, purpose, code); err != nil {
		s.recordAudit(ctx, user.ID, user.Email, client, domain.LoginFailure)
		metrics.LoginsTotal.WithLabelValues("otp_failed").Inc()
		return nil, err
	}

	session, rawToken, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	s.recordAudit(ctx, user.ID, user.Email, client, domain.LoginSuccess)
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return &ports.SessionGrant{
		Session:      session,
		SessionToken: rawToken,
		Role:         user.Role,
		LandingRoute: user.Role.LandingRoute(),
	}, nil
}

// ParseTempToken verifies signature and expiry of a temp bridge token.
func (s *AuthService) ParseTempToken(token string) (*ports.PendingChallenge, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	pendingOTP, _ := claims["otp"].(bool)
	if sub == "" || !domain.Role(role).Valid() {
		return nil, domain.ErrInvalidToken
	}

	return &ports.PendingChallenge{
		UserID:      sub,
		Role:        domain.Role(role),
		RequiresOTP: pendingOTP,
	}, nil
}

func (s *AuthService) signTempToken(userID string, role domain.Role) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"otp":  true,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.TempTokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// recordAudit hands one attempt record to the async audit sink. Device and
// location are classified here so the log never stores unparsed blobs.
func (s *AuthService) recordAudit(ctx context.Context, userID, email string, client ports.ClientInfo, status domain.LoginStatus) {
	s.audit.Record(domain.LoginAuditEntry{
		UserID:    userID,
		Email:     email,
		IPAddress: client.IPAddress,
		Device:    device.Classify(client.UserAgent),
		Location:  s.geo.Resolve(ctx, client.IPAddress),
		Status:    status,
		CreatedAt: s.clock.Now(),
	})
}
