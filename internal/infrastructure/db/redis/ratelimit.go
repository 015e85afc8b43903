package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// OTPRateLimiter throttles challenge issuance per (user, purpose): a resend
// cooldown between consecutive requests plus a hard cap per rolling window.
// This is independent of the per-challenge verify attempt counter.
// Key formats: otp:last:<user>:<purpose>, otp:count:<user>:<purpose>
type OTPRateLimiter struct {
	client       *redis.Client
	cooldown     time.Duration
	window       time.Duration
	maxPerWindow int
}

func NewOTPRateLimiter(client *redis.Client, cooldown, window time.Duration, maxPerWindow int) *OTPRateLimiter {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if window <= 0 {
		window = time.Hour
	}
	if maxPerWindow <= 0 {
		maxPerWindow = 5
	}
	return &OTPRateLimiter{client: client, cooldown: cooldown, window: window, maxPerWindow: maxPerWindow}
}

// Allow reports whether another challenge may be issued now. A limiter
// backend failure does not block issuance: OTP delivery remaining available
// matters more than throttling precision.
func (l *OTPRateLimiter) Allow(ctx context.Context, userID string, purpose domain.OTPPurpose) error {
	lastKey := fmt.Sprintf("otp:last:%s:%s", userID, purpose)
	countKey := fmt.Sprintf("otp:count:%s:%s", userID, purpose)

	if ttl, err := l.client.TTL(ctx, lastKey).Result(); err == nil && ttl > 0 {
		return domain.ErrOTPRateLimited
	}

	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		_ = l.client.Expire(ctx, countKey, l.window).Err()
	}
	if count > int64(l.maxPerWindow) {
		return domain.ErrOTPRateLimited
	}

	_ = l.client.Set(ctx, lastKey, "1", l.cooldown).Err()
	return nil
}
