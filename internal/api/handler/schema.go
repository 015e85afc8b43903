package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type issueOTPRequest struct {
	Purpose string `json:"purpose" validate:"required,oneof=login signup verification"`
}

type verifyOTPRequest struct {
	Purpose string `json:"purpose" validate:"required,oneof=login signup verification"`
	Code    string `json:"code"    validate:"required,numeric,min=4,max=10"`
}

// --- Response types ---

type deviceResponse struct {
	Class   string `json:"class"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

type locationResponse struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

type sessionResponse struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Device       deviceResponse   `json:"device"`
	IPAddress    string           `json:"ip_address"`
	Location     locationResponse `json:"location"`
	Status       string           `json:"status,omitempty"`
	LastActiveAt time.Time        `json:"last_active_at"`
	CreatedAt    time.Time        `json:"created_at"`
	Expires      time.Time        `json:"expires"`
}

type loginResponse struct {
	RequiresOTP  bool             `json:"requires_otp"`
	Token        string           `json:"token,omitempty"`
	SessionToken string           `json:"session_token,omitempty"`
	Role         string           `json:"role"`
	LandingRoute string           `json:"landing_route"`
	Session      *sessionResponse `json:"session,omitempty"`
}

type verifyOTPResponse struct {
	SessionToken string           `json:"session_token"`
	Role         string           `json:"role"`
	LandingRoute string           `json:"landing_route"`
	Session      *sessionResponse `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type summaryResponse struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByCity      map[string]int `json:"by_city"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type historyEntryResponse struct {
	UserID    string           `json:"user_id,omitempty"`
	Email     string           `json:"email"`
	IPAddress string           `json:"ip_address"`
	Device    deviceResponse   `json:"device"`
	Location  locationResponse `json:"location"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type historyResponse struct {
	Entries []historyEntryResponse `json:"entries"`
}
