package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesaops/identity-api/internal/api/metrics"
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

// OTPConfig captures the challenge tunables, injected at construction.
type OTPConfig struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
	Cooldown    time.Duration
}

// OTPService issues and verifies one-time-code challenges. Codes are stored
// bcrypt-hashed; at most one active challenge exists per (user, purpose).
type OTPService struct {
	repo     ports.OTPRepository
	limiter  ports.OTPRateLimiter
	notifier ports.Notifier
	clock    ports.Clock
	cfg      OTPConfig
	log      zerolog.Logger
}

func NewOTPService(
	repo ports.OTPRepository,
	limiter ports.OTPRateLimiter,
	notifier ports.Notifier,
	clock ports.Clock,
	cfg OTPConfig,
	log zerolog.Logger,
) *OTPService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &OTPService{repo: repo, limiter: limiter, notifier: notifier, clock: clock, cfg: cfg, log: log}
}

// Issue creates a fresh challenge for (userID, purpose), superseding any
// prior one, and triggers delivery. Delivery is fire-and-forget: a transport
// failure is logged but the challenge stays valid for its TTL.
func (s *OTPService) Issue(ctx context.Context, userID, email string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("issue otp: unknown purpose %q", purpose)
	}

	if err := s.limiter.Allow(ctx, userID, purpose); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// A locked challenge blocks re-issue until its cooldown elapses;
	// otherwise an attacker could reset the lock by requesting a new code.
	if existing, err := s.repo.Find(ctx, userID, purpose); err == nil && existing.LockedAt(now) {
		return nil, domain.ErrOTPLocked
	}

	code, err := randomCode(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	challenge := &domain.OTPChallenge{
		UserID:      userID,
		Purpose:     purpose,
		CodeHash:    hash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
	}

	if err := s.repo.Upsert(ctx, challenge); err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	metrics.OTPIssuedTotal.WithLabelValues(string(purpose)).Inc()
	s.log.Info().Str("user_id", userID).Str("purpose", string(purpose)).Msg("otp challenge issued")

	go func() {
		deliverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.DeliverCode(deliverCtx, userID, email, purpose, code); err != nil {
			metrics.OTPDeliveryErrorsTotal.Inc()
			s.log.Error().Err(err).Str("user_id", userID).Msg("otp delivery failed")
		}
	}()

	return challenge, nil
}

// Verify checks a candidate code against the active challenge.
func (s *OTPService) Verify(ctx context.Context, userID string, purpose domain.OTPPurpose, code string) error {
	challenge, err := s.repo.Find(ctx, userID, purpose)
	if err != nil {
		return s.reject(userID, purpose, domain.ErrOTPNotFound)
	}

	now := s.clock.Now()
	switch {
	case challenge.Consumed:
		return s.reject(userID, purpose, domain.ErrOTPAlreadyConsumed)
	case challenge.ExpiredAt(now):
		return s.reject(userID, purpose, domain.ErrOTPExpired)
	case challenge.LockedAt(now):
		return s.reject(userID, purpose, domain.ErrOTPLocked)
	}

	if bcrypt.CompareHashAndPassword(challenge.CodeHash, []byte(code)) != nil {
		updated, err := s.repo.RegisterFailure(ctx, userID, purpose)
		if err != nil {
			return fmt.Errorf("verify otp: %w", err)
		}
		if updated.AttemptsUsed >= updated.MaxAttempts {
			locked, err := s.repo.Lock(ctx, userID, purpose, now.Add(s.cfg.Cooldown))
			if err != nil {
				return fmt.Errorf("verify otp: %w", err)
			}
			if locked {
				s.log.Warn().Str("user_id", userID).Str("purpose", string(purpose)).Msg("otp challenge locked")
			}
			return s.reject(userID, purpose, domain.ErrOTPLocked)
		}
		return s.reject(userID, purpose, domain.ErrOTPMismatch)
	}

	consumed, err := s.repo.Consume(ctx, userID, purpose)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if !consumed {
		return s.reject(userID, purpose, domain.ErrOTPAlreadyConsumed)
	}

	metrics.OTPVerifiedTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *OTPService) reject(userID string, purpose domain.OTPPurpose, reason error) error {
	metrics.OTPVerifiedTotal.WithLabelValues(verifyLabel(reason)).Inc()
	s.log.Debug().Str("user_id", userID).Str("purpose", string(purpose)).Err(reason).Msg("otp verification rejected")
	return reason
}

func verifyLabel(err error) string {
	switch err {
	case domain.ErrOTPExpired:
		return "expired"
	case domain.ErrOTPLocked:
		return "locked"
	case domain.ErrOTPAlreadyConsumed:
		return "consumed"
	case domain.ErrOTPMismatch:
		return "mismatch"
	case domain.ErrOTPNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// randomCode generates a zero-padded numeric code of the given length using
// crypto/rand.
func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
