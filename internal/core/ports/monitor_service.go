package ports

import (
	"context"
	"time"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// SessionView is a session annotated with its derived activity status.
type SessionView struct {
	Session domain.Session       `json:"session"`
	Status  domain.SessionStatus `json:"status"`
}

// SessionSummary aggregates the active session population for admin views.
type SessionSummary struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByCity      map[string]int `json:"by_city"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// MonitorService is the read side over the session registry and the login
// audit log. It carries no mutation capability; all mutations route through
// the session service.
type MonitorService interface {
	Sessions(ctx context.Context, userID string) ([]SessionView, error)
	Summary(ctx context.Context) (*SessionSummary, error)
	LoginHistory(ctx context.Context, userID string, limit int) ([]domain.LoginAuditEntry, error)
}
