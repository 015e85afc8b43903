package domain

import "time"

// LoginStatus is the terminal outcome of one authentication attempt.
type LoginStatus string

const (
	LoginSuccess LoginStatus = "success"
	LoginFailure LoginStatus = "failure"
)

// LoginAuditEntry is an append-only record of a single authentication
// attempt, written regardless of outcome. This subsystem never mutates or
// deletes entries; the session monitor reads them for history views.
type LoginAuditEntry struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Email     string             `json:"email"`
	IPAddress string             `json:"ip_address"`
	Device    DeviceDescriptor   `json:"device"`
	Location  LocationDescriptor `json:"location"`
	Status    LoginStatus        `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}
