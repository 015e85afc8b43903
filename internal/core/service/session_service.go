package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/api/metrics"
	"github.com/mesaops/identity-api/internal/core/device"
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

const lockStripes = 64

// SessionConfig captures the registry tunables, injected at construction.
type SessionConfig struct {
	TTL             time.Duration
	TouchInterval   time.Duration
	RevokeBatchSize int
}

// SessionService owns session creation, resolution, heartbeat, and
// revocation. The repository is the single source of truth; the striped
// per-user locks only serialize Create against RevokeAllForUser so a session
// created mid-revocation cannot survive it.
type SessionService struct {
	repo  ports.SessionRepository
	geo   ports.GeoResolver
	clock ports.Clock
	cfg   SessionConfig
	log   zerolog.Logger

	userLocks [lockStripes]sync.Mutex
}

func NewSessionService(
	repo ports.SessionRepository,
	geo ports.GeoResolver,
	clock ports.Clock,
	cfg SessionConfig,
	log zerolog.Logger,
) *SessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.TouchInterval <= 0 {
		cfg.TouchInterval = time.Minute
	}
	if cfg.RevokeBatchSize <= 0 {
		cfg.RevokeBatchSize = 500
	}
	return &SessionService{repo: repo, geo: geo, clock: clock, cfg: cfg, log: log}
}

// Create materializes a durable session bound to the client's device and
// location. This is the one point where "authenticated" becomes true.
// It returns the session and the raw bearer token; only the token's sha256
// hash is persisted.
func (s *SessionService) Create(ctx context.Context, userID string, client ports.ClientInfo) (*domain.Session, string, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	rawToken, tokenHash, err := generateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		TokenHash:    tokenHash,
		Expires:      now.Add(s.cfg.TTL),
		LastActiveAt: now,
		UserAgent:    client.UserAgent,
		Device:       device.Classify(client.UserAgent),
		IPAddress:    client.IPAddress,
		Location:     s.geo.Resolve(ctx, client.IPAddress),
		CreatedAt:    now,
	}

	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	s.log.Info().
		Str("user_id", userID).
		Str("session_id", session.ID).
		Str("device", string(session.Device.Class)).
		Str("city", session.Location.City).
		Msg("session created")

	return session, rawToken, nil
}

// Resolve is the single authorization check every protected request passes
// through. Revoked, expired, and unknown tokens are indistinguishable: all
// return ErrSessionNotFound.
func (s *SessionService) Resolve(ctx context.Context, rawToken string) (*domain.Session, error) {
	start := time.Now()
	defer func() {
		metrics.SessionResolveDuration.Observe(time.Since(start).Seconds())
	}()

	hash := hashSessionToken(rawToken)
	session, err := s.repo.FindByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session.Expired(s.clock.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Touch refreshes lastActiveAt. Writes are throttled: a touch within
// TouchInterval of the stored value is dropped at the store, so concurrent
// requests collapse to one write.
func (s *SessionService) Touch(ctx context.Context, rawToken string) error {
	now := s.clock.Now()
	_, err := s.repo.Touch(ctx, hashSessionToken(rawToken), now, now.Add(-s.cfg.TouchInterval))
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// List returns sessions for one user, or every session when userID is empty.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Revoke terminates one session. Unknown ids are a no-op success.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues("session").Inc()
	s.log.Info().Str("session_id", sessionID).Msg("session revoked")
	return nil
}

// RevokeAllForUser terminates every session of one user. The per-user lock
// serializes against Create, so once this returns no concurrently created
// session for the user survives.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	n, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues("user").Add(float64(n))
	s.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("all user sessions revoked")
	return nil
}

// RevokeAll is the emergency system-wide lockout. Deletes run in batches so
// no single store operation is unbounded.
func (s *SessionService) RevokeAll(ctx context.Context) error {
	var total int64
	for {
		n, err := s.repo.DeleteBatch(ctx, s.cfg.RevokeBatchSize)
		if err != nil {
			return fmt.Errorf("revoke all sessions: %w", err)
		}
		total += n
		if n < int64(s.cfg.RevokeBatchSize) {
			break
		}
	}
	metrics.SessionsRevokedTotal.WithLabelValues("system").Add(float64(total))
	s.log.Warn().Int64("revoked", total).Msg("system-wide session revocation")
	return nil
}

// userLock maps a user id deterministically to one of the lock stripes.
func (s *SessionService) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.userLocks[int(h.Sum32())%lockStripes]
}

// generateSessionToken returns a raw 32-byte token (base64url-encoded) and
// its sha256 hash.
func generateSessionToken() (string, []byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(raw))
	return raw, sum[:], nil
}

func hashSessionToken(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}
