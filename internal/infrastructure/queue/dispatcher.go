package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/api/metrics"
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 5 * time.Second
)

// AuditDispatcher routes login audit entries to a fixed set of workers using
// consistent hashing on the user id, so entries for one account are
// persisted in the order they were recorded. Persistence never blocks the
// login path; a full worker channel drops the entry rather than stalling.
type AuditDispatcher struct {
	workers []chan domain.LoginAuditEntry
	repo    ports.AuditRepository
	log     zerolog.Logger
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.LoginAuditEntry, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoginAuditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record accepts one audit entry for background persistence.
func (d *AuditDispatcher) Record(entry domain.LoginAuditEntry) {
	idx := d.shardIndex(entry.UserID)
	select {
	case d.workers[idx] <- entry:
		metrics.AuditQueueDepth.WithLabelValues(fmt.Sprint(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().Str("user_id", entry.UserID).Msg("audit entry dropped: worker channel full")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoginAuditEntry) {
	workerID := fmt.Sprint(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			if err := d.repo.Insert(ctx, &entry); err != nil {
				d.log.Error().Err(err).
					Str("user_id", entry.UserID).
					Int("worker_id", id).
					Msg("audit persistence failed")
			}
		}
	}
}

// drain persists whatever is still buffered when the worker shuts down. The
// parent context is already cancelled at this point, so each insert runs
// under its own short deadline.
func (d *AuditDispatcher) drain(id int, ch <-chan domain.LoginAuditEntry) {
	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			err := d.repo.Insert(ctx, &entry)
			cancel()
			if err != nil {
				d.log.Error().Err(err).
					Str("user_id", entry.UserID).
					Int("worker_id", id).
					Msg("audit persistence failed during drain")
			}
		default:
			return
		}
	}
}
