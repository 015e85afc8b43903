package ports

import (
	"context"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// OTPService manages one-time-code challenges: issuance with supersede
// semantics, verification with attempt limiting and cooldown lockout.
type OTPService interface {
	Issue(ctx context.Context, userID, email string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error)
	Verify(ctx context.Context, userID string, purpose domain.OTPPurpose, code string) error
}
