package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

const defaultHistoryLimit = 100

// MonitorService is the read side over the session registry and login audit
// log. Status and city grouping are recomputed on every read; nothing here
// mutates state.
type MonitorService struct {
	sessions ports.SessionRepository
	audit    ports.AuditRepository
	clock    ports.Clock
	log      zerolog.Logger
}

func NewMonitorService(
	sessions ports.SessionRepository,
	audit ports.AuditRepository,
	clock ports.Clock,
	log zerolog.Logger,
) *MonitorService {
	return &MonitorService{sessions: sessions, audit: audit, clock: clock, log: log}
}

// Sessions lists active sessions annotated with derived status. Sessions
// past their natural expiry are filtered out at read time.
func (s *MonitorService) Sessions(ctx context.Context, userID string) ([]ports.SessionView, error) {
	all, err := s.sessions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("monitor sessions: %w", err)
	}

	now := s.clock.Now()
	views := make([]ports.SessionView, 0, len(all))
	for _, session := range all {
		if session.Expired(now) {
			continue
		}
		views = append(views, ports.SessionView{
			Session: session,
			Status:  session.Status(now),
		})
	}
	return views, nil
}

// Summary aggregates active sessions by derived status and by geographic
// city. Sessions with unresolvable locations land in the explicit "Unknown"
// bucket, never silently dropped.
func (s *MonitorService) Summary(ctx context.Context) (*ports.SessionSummary, error) {
	all, err := s.sessions.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("monitor summary: %w", err)
	}

	now := s.clock.Now()
	summary := &ports.SessionSummary{
		ByStatus:    make(map[string]int),
		ByCity:      make(map[string]int),
		GeneratedAt: now,
	}
	for _, session := range all {
		if session.Expired(now) {
			continue
		}
		summary.Total++
		summary.ByStatus[string(session.Status(now))]++

		city := session.Location.City
		if session.Location.IsUnknown() {
			city = domain.UnknownLocation.City
		}
		summary.ByCity[city]++
	}
	return summary, nil
}

// LoginHistory returns audit entries newest first.
func (s *MonitorService) LoginHistory(ctx context.Context, userID string, limit int) ([]domain.LoginAuditEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := s.audit.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("login history: %w", err)
	}
	return entries, nil
}
