package domain

import (
	"errors"
	"time"
)

// DeviceClass buckets a user agent into a coarse device category.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// DeviceDescriptor is the parsed form of a user-agent string, produced once
// at session creation and never re-parsed afterwards.
type DeviceDescriptor struct {
	Class   DeviceClass `json:"class" bson:"class"`
	OS      string      `json:"os" bson:"os"`
	Browser string      `json:"browser" bson:"browser"`
}

// LocationDescriptor is the parsed form of an IP geolocation lookup.
// The zero value is not meaningful; use UnknownLocation for failed lookups.
type LocationDescriptor struct {
	City    string `json:"city" bson:"city"`
	Region  string `json:"region" bson:"region"`
	Country string `json:"country" bson:"country"`
}

// UnknownLocation is the explicit fallback when geolocation cannot resolve.
// Sessions carrying it are grouped under the "Unknown" bucket, never dropped.
var UnknownLocation = LocationDescriptor{City: "Unknown", Region: "Unknown", Country: "Unknown"}

// IsUnknown reports whether the location failed to resolve to a city.
func (l LocationDescriptor) IsUnknown() bool {
	return l.City == "" || l.City == UnknownLocation.City
}

// SessionStatus is the derived activity state of a session. It is a
// read-time projection, recomputed on every read and never persisted.
type SessionStatus string

const (
	StatusOnline      SessionStatus = "online"
	StatusAway        SessionStatus = "away"
	StatusOffline     SessionStatus = "offline"
	StatusNeverActive SessionStatus = "never_active"
)

const (
	onlineWindow = 5 * time.Minute
	awayWindow   = 30 * time.Minute
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a durable, revocable grant of authenticated access bound to one
// device/login instance. TokenHash holds a sha256 of the bearer token; the
// raw token exists only in the client's hands.
type Session struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	TokenHash    []byte             `json:"-"`
	Expires      time.Time          `json:"expires"`
	LastActiveAt time.Time          `json:"last_active_at"`
	UserAgent    string             `json:"user_agent"`
	Device       DeviceDescriptor   `json:"device"`
	IPAddress    string             `json:"ip_address"`
	Location     LocationDescriptor `json:"location"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Expired reports whether the session is past its natural expiry at the
// given instant. Expiry is lazy: nothing purges sessions eagerly, resolve
// computes this on every read.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.Expires)
}

// Status derives the activity state at the given instant.
func (s *Session) Status(now time.Time) SessionStatus {
	if s.LastActiveAt.IsZero() {
		return StatusNeverActive
	}
	idle := now.Sub(s.LastActiveAt)
	switch {
	case idle < onlineWindow:
		return StatusOnline
	case idle < awayWindow:
		return StatusAway
	default:
		return StatusOffline
	}
}
