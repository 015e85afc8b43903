package ports

import (
	"context"
	"time"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// SessionRepository is the single authoritative session store. Every
// mutation is a per-key atomic write; callers never cache resolve results.
type SessionRepository interface {
	Insert(ctx context.Context, s *domain.Session) error
	FindByTokenHash(ctx context.Context, tokenHash []byte) (*domain.Session, error)
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	// List returns sessions for one user, or all sessions when userID is empty.
	List(ctx context.Context, userID string) ([]domain.Session, error)
	// Touch sets lastActiveAt to now, but only when the stored value is older
	// than the threshold. Returns false when the write was throttled away.
	Touch(ctx context.Context, tokenHash []byte, now time.Time, threshold time.Time) (bool, error)
	// Delete removes one session. Deleting a nonexistent session is a no-op.
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	// DeleteBatch removes up to limit sessions and reports how many went.
	// Used by system-wide revocation to bound individual store operations.
	DeleteBatch(ctx context.Context, limit int) (int64, error)
	// DeleteExpired clears sessions whose expiry predates now (storage
	// hygiene only; resolve already treats expiry as a read-time fact).
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
