package ports

import (
	"context"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// AuditRepository persists the append-only login audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.LoginAuditEntry) error
	// List returns entries ordered by createdAt descending. A userID filter
	// narrows to one account; limit bounds the page size.
	List(ctx context.Context, userID string, limit int) ([]domain.LoginAuditEntry, error)
}

// AuditSink decouples the login path from audit persistence. Records are
// accepted synchronously and written in the background.
type AuditSink interface {
	Record(entry domain.LoginAuditEntry)
}
