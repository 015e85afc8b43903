package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
)

type memAuditSink struct {
	mu      sync.Mutex
	entries []domain.LoginAuditEntry
}

func (s *memAuditSink) Insert(_ context.Context, entry *domain.LoginAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memAuditSink) List(_ context.Context, _ string, _ int) ([]domain.LoginAuditEntry, error) {
	return nil, nil
}

func (s *memAuditSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func waitForCount(t *testing.T, sink *memAuditSink, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("persisted %d entries, want %d", sink.count(), want)
}

func TestAuditDispatcher_PersistsRecordedEntries(t *testing.T) {
	sink := &memAuditSink{}
	d := NewAuditDispatcher(2, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		d.Record(domain.LoginAuditEntry{
			UserID: fmt.Sprintf("u%d", i%3),
			Email:  "user@example.com",
			Status: domain.LoginSuccess,
		})
	}

	waitForCount(t, sink, 10)
}

func TestAuditDispatcher_DrainsBufferedEntriesOnShutdown(t *testing.T) {
	sink := &memAuditSink{}
	d := NewAuditDispatcher(2, sink, zerolog.Nop())

	// Buffer entries before any worker runs, then start with a cancelled
	// context. Workers must still flush what is queued.
	for i := 0; i < 8; i++ {
		d.Record(domain.LoginAuditEntry{
			UserID: fmt.Sprintf("u%d", i),
			Status: domain.LoginFailure,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	waitForCount(t, sink, 8)
}
