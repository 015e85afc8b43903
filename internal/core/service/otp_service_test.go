package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memOTPRepo struct {
	mu         sync.Mutex
	challenges map[string]*domain.OTPChallenge
}

func newMemOTPRepo() *memOTPRepo {
	return &memOTPRepo{challenges: make(map[string]*domain.OTPChallenge)}
}

func otpKey(userID string, purpose domain.OTPPurpose) string {
	return userID + ":" + string(purpose)
}

func (r *memOTPRepo) Upsert(_ context.Context, c *domain.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.challenges[otpKey(c.UserID, c.Purpose)] = &clone
	return nil
}

func (r *memOTPRepo) Find(_ context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[otpKey(userID, purpose)]
	if !ok {
		return nil, domain.ErrOTPNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memOTPRepo) RegisterFailure(_ context.Context, userID string, purpose domain.OTPPurpose) (*domain.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[otpKey(userID, purpose)]
	if !ok {
		return nil, domain.ErrOTPNotFound
	}
	c.AttemptsUsed++
	clone := *c
	return &clone, nil
}

func (r *memOTPRepo) Lock(_ context.Context, userID string, purpose domain.OTPPurpose, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[otpKey(userID, purpose)]
	if !ok || !c.LockedUntil.IsZero() {
		return false, nil
	}
	c.LockedUntil = until
	return true, nil
}

func (r *memOTPRepo) Consume(_ context.Context, userID string, purpose domain.OTPPurpose) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[otpKey(userID, purpose)]
	if !ok || c.Consumed {
		return false, nil
	}
	c.Consumed = true
	return true, nil
}

func (r *memOTPRepo) Delete(_ context.Context, userID string, purpose domain.OTPPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.challenges, otpKey(userID, purpose))
	return nil
}

func (r *memOTPRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.challenges {
		if now.After(c.ExpiresAt) && !c.LockedAt(now) {
			delete(r.challenges, k)
			n++
		}
	}
	return n, nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(context.Context, string, domain.OTPPurpose) error { return nil }

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, domain.OTPPurpose) error {
	return domain.ErrOTPRateLimited
}

// captureNotifier hands delivered codes to the test over a channel, since
// delivery runs on its own goroutine.
type captureNotifier struct {
	codes chan string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{codes: make(chan string, 8)}
}

func (n *captureNotifier) DeliverCode(_ context.Context, _, _ string, _ domain.OTPPurpose, code string) error {
	n.codes <- code
	return nil
}

func (n *captureNotifier) lastCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-n.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("no code delivered")
		return ""
	}
}

func newTestOTPService(repo ports.OTPRepository, limiter ports.OTPRateLimiter, notifier ports.Notifier, clock ports.Clock) *OTPService {
	return NewOTPService(repo, limiter, notifier, clock, OTPConfig{
		CodeLength:  6,
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
		Cooldown:    15 * time.Minute,
	}, zerolog.Nop())
}

func TestOTPService_IssueAndVerify(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	clock := newFakeClock()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, clock)

	challenge, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if challenge.AttemptsUsed != 0 {
		t.Fatalf("attempts = %d, want 0", challenge.AttemptsUsed)
	}

	code := notifier.lastCode(t)
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}

	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestOTPService_CodeNotStoredInPlaintext(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, newFakeClock())

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	stored, _ := repo.Find(context.Background(), "u1", domain.PurposeLogin)
	if string(stored.CodeHash) == code {
		t.Fatal("code stored in plaintext")
	}
}

func TestOTPService_ReissueSupersedes(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, newFakeClock())

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	oldCode := notifier.lastCode(t)

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	newCode := notifier.lastCode(t)

	// The superseded code must never verify again.
	if oldCode != newCode {
		if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, oldCode); err == nil {
			t.Fatal("superseded code verified successfully")
		}
	}
	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, newCode); err != nil {
		t.Fatalf("fresh code rejected: %v", err)
	}
}

func TestOTPService_Expiry(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	clock := newFakeClock()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, clock)

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	clock.Advance(6 * time.Minute)

	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, code); err != domain.ErrOTPExpired {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}

	// Expired rejections never count as attempts.
	stored, _ := repo.Find(context.Background(), "u1", domain.PurposeLogin)
	if stored.AttemptsUsed != 0 {
		t.Fatalf("attempts = %d after expired rejection, want 0", stored.AttemptsUsed)
	}
}

func TestOTPService_LockoutAfterMaxAttempts(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	clock := newFakeClock()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, clock)

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	// Two mismatches are recoverable.
	for i := 0; i < 2; i++ {
		if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, "000000"); err != domain.ErrOTPMismatch {
			t.Fatalf("attempt %d: expected ErrOTPMismatch, got %v", i+1, err)
		}
	}

	// Third mismatch trips the lock.
	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, "000000"); err != domain.ErrOTPLocked {
		t.Fatalf("expected ErrOTPLocked on third mismatch, got %v", err)
	}

	// Even the correct code is rejected while locked.
	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, code); err != domain.ErrOTPLocked {
		t.Fatalf("expected ErrOTPLocked for correct code while locked, got %v", err)
	}

	// Attempts do not grow on locked rejections.
	stored, _ := repo.Find(context.Background(), "u1", domain.PurposeLogin)
	if stored.AttemptsUsed != 3 {
		t.Fatalf("attempts = %d, want 3", stored.AttemptsUsed)
	}

	// Re-issue during cooldown is refused.
	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != domain.ErrOTPLocked {
		t.Fatalf("expected ErrOTPLocked on re-issue during cooldown, got %v", err)
	}

	// After the cooldown a fresh challenge may be created.
	clock.Advance(16 * time.Minute)
	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("issue after cooldown failed: %v", err)
	}
}

func TestOTPService_Consumed(t *testing.T) {
	repo := newMemOTPRepo()
	notifier := newCaptureNotifier()
	svc := newTestOTPService(repo, allowAllLimiter{}, notifier, newFakeClock())

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.Verify(context.Background(), "u1", domain.PurposeLogin, code); err != domain.ErrOTPAlreadyConsumed {
		t.Fatalf("expected ErrOTPAlreadyConsumed, got %v", err)
	}
}

func TestOTPService_RateLimited(t *testing.T) {
	repo := newMemOTPRepo()
	svc := newTestOTPService(repo, denyLimiter{}, newCaptureNotifier(), newFakeClock())

	if _, err := svc.Issue(context.Background(), "u1", "u1@example.com", domain.PurposeLogin); err != domain.ErrOTPRateLimited {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
}

func TestOTPService_VerifyWithoutChallenge(t *testing.T) {
	svc := newTestOTPService(newMemOTPRepo(), allowAllLimiter{}, newCaptureNotifier(), newFakeClock())

	if err := svc.Verify(context.Background(), "ghost", domain.PurposeLogin, "123456"); err != domain.ErrOTPNotFound {
		t.Fatalf("expected ErrOTPNotFound, got %v", err)
	}
}
