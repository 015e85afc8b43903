package ports

import (
	"context"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// UserRepository reads identities from the credential store. The auth
// subsystem never writes users.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
