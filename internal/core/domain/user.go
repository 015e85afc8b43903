package domain

import (
	"errors"
	"time"
)

// Role is the closed set of actor roles in the platform.
type Role string

const (
	RoleCustomer             Role = "customer"
	RoleAdmin                Role = "admin"
	RoleRestaurantOwner      Role = "restaurant_owner"
	RoleRestaurantManager    Role = "restaurant_manager"
	RoleRestaurantSupervisor Role = "restaurant_supervisor"
	RoleKitchenStaff         Role = "kitchen_staff"
	RoleITAccess             Role = "it_access"
)

// landingRoutes maps each role to its post-login landing route. Routing is a
// UI concern; the auth flow only returns the role and this lookup.
var landingRoutes = map[Role]string{
	RoleCustomer:             "/menu",
	RoleAdmin:                "/admin/dashboard",
	RoleRestaurantOwner:      "/owner/dashboard",
	RoleRestaurantManager:    "/manager/dashboard",
	RoleRestaurantSupervisor: "/supervisor/dashboard",
	RoleKitchenStaff:         "/kitchen/orders",
	RoleITAccess:             "/it/console",
}

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountDisabled = errors.New("account disabled")
var ErrInvalidToken = errors.New("invalid or expired token")
var ErrUserNotFound = errors.New("user not found")

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := landingRoutes[r]
	return ok
}

// LandingRoute returns the route the UI should redirect to after login.
// Unknown roles land on the customer menu.
func (r Role) LandingRoute() string {
	if route, ok := landingRoutes[r]; ok {
		return route
	}
	return landingRoutes[RoleCustomer]
}

// User models an authenticated actor. The auth subsystem reads role and
// flags only; profile mutation lives elsewhere.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	OTPEnabled   bool      `json:"otp_enabled"`
	Disabled     bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialResult is the transient outcome of validating primary
// credentials. Never persisted.
type CredentialResult struct {
	UserID      string
	Role        Role
	RequiresOTP bool
}
