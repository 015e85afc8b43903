package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/ports"
)

// Sweeper periodically deletes expired sessions and challenges. This is
// storage hygiene only: resolve and verify already treat expiry as a
// read-time fact, so correctness never depends on the sweep running.
type Sweeper struct {
	sessions ports.SessionRepository
	otps     ports.OTPRepository
	clock    ports.Clock
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(
	sessions ports.SessionRepository,
	otps ports.OTPRepository,
	clock ports.Clock,
	interval time.Duration,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{sessions: sessions, otps: otps, clock: clock, interval: interval, log: log}
}

// Start runs the sweep loop until ctx is cancelled. A non-positive interval
// disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.clock.Now()

	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Warn().Err(err).Msg("session sweep failed")
	}
	otps, err := s.otps.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Warn().Err(err).Msg("otp sweep failed")
	}

	if sessions > 0 || otps > 0 {
		s.log.Debug().Int64("sessions", sessions).Int64("otps", otps).Msg("expired records swept")
	}
}
