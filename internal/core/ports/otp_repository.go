package ports

import (
	"context"
	"time"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// OTPRepository stores at most one challenge per (userID, purpose).
type OTPRepository interface {
	// Upsert atomically replaces any existing challenge for the same
	// (userID, purpose): supersede, never append.
	Upsert(ctx context.Context, c *domain.OTPChallenge) error
	Find(ctx context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error)
	// RegisterFailure atomically increments attemptsUsed and returns the
	// updated challenge.
	RegisterFailure(ctx context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error)
	// Lock sets lockedUntil if not already set; reports whether this call
	// performed the transition.
	Lock(ctx context.Context, userID string, purpose domain.OTPPurpose, until time.Time) (bool, error)
	// Consume marks the challenge used if not already consumed; reports
	// whether this call performed the transition.
	Consume(ctx context.Context, userID string, purpose domain.OTPPurpose) (bool, error)
	Delete(ctx context.Context, userID string, purpose domain.OTPPurpose) error
	// DeleteExpired clears challenges whose expiry predates now, except
	// those still inside their lockout cooldown.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
