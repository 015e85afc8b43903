package ports

import (
	"context"
	"time"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// Clock abstracts time so TTL and cooldown behavior is testable.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// Notifier delivers a one-time code to the user over an external transport
// (email/SMS). Delivery is fire-and-forget with respect to the request: a
// failed delivery does not unwind the challenge.
type Notifier interface {
	DeliverCode(ctx context.Context, userID, email string, purpose domain.OTPPurpose, code string) error
}

// GeoResolver maps an IP address to a location, best effort. Implementations
// must bound their lookup time and return UnknownLocation on any failure,
// never an error that could stall or fail authentication.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) domain.LocationDescriptor
}

// OTPRateLimiter throttles challenge issuance per (userID, purpose),
// independent of the per-challenge verify attempt counter.
type OTPRateLimiter interface {
	Allow(ctx context.Context, userID string, purpose domain.OTPPurpose) error
}

// ClientInfo carries the request metadata bound to a session at creation.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}
