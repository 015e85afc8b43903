package ports

import (
	"context"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// SessionService owns the session registry and the revocation engine.
// Create is the one and only point where "authenticated" becomes true.
type SessionService interface {
	Create(ctx context.Context, userID string, client ClientInfo) (*domain.Session, string, error)
	// Resolve is the single authorization check for protected requests.
	// Revoked and expired sessions are indistinguishable from unknown ones.
	Resolve(ctx context.Context, rawToken string) (*domain.Session, error)
	// Touch refreshes lastActiveAt, throttled to bound write amplification.
	Touch(ctx context.Context, rawToken string) error
	List(ctx context.Context, userID string) ([]domain.Session, error)
	// Revoke terminates one session. Revoking an unknown or already-revoked
	// session is a no-op success.
	Revoke(ctx context.Context, sessionID string) error
	// RevokeAllForUser terminates every session of one user, serialized
	// against concurrent Create calls for the same user.
	RevokeAllForUser(ctx context.Context, userID string) error
	// RevokeAll is the emergency system-wide lockout; deletes in batches.
	RevokeAll(ctx context.Context) error
}
