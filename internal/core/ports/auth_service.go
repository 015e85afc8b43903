package ports

import (
	"context"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// LoginOutcome is the result of a successful credential validation. When
// RequiresOTP is set, TempToken bridges to the OTP step and no session
// exists yet; otherwise Session and SessionToken are populated directly.
type LoginOutcome struct {
	RequiresOTP  bool
	TempToken    string
	Role         domain.Role
	LandingRoute string
	Session      *domain.Session
	SessionToken string
}

// SessionGrant is the result of completing the login ceremony.
type SessionGrant struct {
	Session      *domain.Session
	SessionToken string
	Role         domain.Role
	LandingRoute string
}

// PendingChallenge is the decoded payload of a temp bridge token.
type PendingChallenge struct {
	UserID      string
	Role        domain.Role
	RequiresOTP bool
}

// AuthService drives the step-up authentication state machine.
type AuthService interface {
	// Login validates primary credentials and either issues a temp bridge
	// token (step-up required) or creates a session directly.
	Login(ctx context.Context, email, password string, client ClientInfo) (*LoginOutcome, error)
	// ParseTempToken verifies signature and expiry of a bridge token.
	// Tampered or expired tokens fail with ErrInvalidToken.
	ParseTempToken(token string) (*PendingChallenge, error)
	// IssueOTP creates (or supersedes) the challenge for the pending login
	// and triggers delivery.
	IssueOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose) error
	// VerifyOTP checks the candidate code and, on success, completes the
	// ceremony with exactly one session creation.
	VerifyOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose, code string, client ClientInfo) (*SessionGrant, error)
}
