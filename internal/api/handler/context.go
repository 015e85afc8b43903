package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// SessionClaims is the authenticated identity injected by the session
// middleware.
type SessionClaims struct {
	UserID    string
	Role      domain.Role
	SessionID string
}

// Admin reports whether the caller may use administrative endpoints.
func (sc SessionClaims) Admin() bool {
	return sc.Role == domain.RoleAdmin || sc.Role == domain.RoleITAccess
}

// ctxClaims extracts the session claims injected by the middleware and
// fast-fails when they are absent; presence proves the middleware ran.
func ctxClaims(c echo.Context) (SessionClaims, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return SessionClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ := c.Get("role").(string)
	sessionID, _ := c.Get("session_id").(string)
	return SessionClaims{
		UserID:    userID,
		Role:      domain.Role(role),
		SessionID: sessionID,
	}, nil
}
