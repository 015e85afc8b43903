package domain

import (
	"errors"
	"time"
)

// OTPPurpose scopes a one-time code to the flow that requested it. At most
// one active challenge exists per (user, purpose).
type OTPPurpose string

const (
	PurposeLogin        OTPPurpose = "login"
	PurposeSignup       OTPPurpose = "signup"
	PurposeVerification OTPPurpose = "verification"
)

var ErrOTPNotFound = errors.New("otp challenge not found")
var ErrOTPExpired = errors.New("otp challenge expired")
var ErrOTPLocked = errors.New("otp challenge locked")
var ErrOTPAlreadyConsumed = errors.New("otp challenge already consumed")
var ErrOTPMismatch = errors.New("otp code mismatch")
var ErrOTPRateLimited = errors.New("too many otp requests")

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposeSignup, PurposeVerification:
		return true
	}
	return false
}

// OTPChallenge is a stored one-time-code challenge. Only the bcrypt hash of
// the code is kept at rest.
type OTPChallenge struct {
	UserID       string
	Purpose      OTPPurpose
	CodeHash     []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
	AttemptsUsed int
	MaxAttempts  int
	LockedUntil  time.Time
	Consumed     bool
}

// ExpiredAt reports whether the challenge is past its TTL at the instant.
func (c *OTPChallenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// LockedAt reports whether the challenge is inside its cooldown window.
func (c *OTPChallenge) LockedAt(now time.Time) bool {
	return !c.LockedUntil.IsZero() && now.Before(c.LockedUntil)
}
