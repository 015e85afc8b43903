package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesaops/identity-api/internal/core/ports"
)

// SessionHandler exposes session listing and the revocation engine.
type SessionHandler struct {
	sessions ports.SessionService
	monitor  ports.MonitorService
}

func NewSessionHandler(sessions ports.SessionService, monitor ports.MonitorService) *SessionHandler {
	return &SessionHandler{sessions: sessions, monitor: monitor}
}

// List returns sessions with derived status. Non-admin callers only see
// their own; admins may filter by any user id.
//
// @Summary      List sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  false  "Filter by user id (admin only)"
// @Success      200      {object}  listSessionsResponse
// @Failure      401      {object}  errorResponse
// @Router       /v1/sessions [get]
func (h *SessionHandler) List(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	userID := claims.UserID
	if claims.Admin() {
		if filter := c.QueryParam("user_id"); filter != "" {
			userID = filter
		} else {
			userID = ""
		}
	}

	views, err := h.monitor.Sessions(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listSessionsResponse{Sessions: toSessionViews(views)})
}

// Logout revokes the caller's current session.
//
// @Summary      Log out the current session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  errorResponse
// @Router       /v1/auth/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Revoke(c.Request().Context(), claims.SessionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// RevokeSession revokes one session by id. Idempotent: revoking an unknown
// session succeeds.
//
// @Summary      Revoke one session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/sessions/{id}/logout [post]
func (h *SessionHandler) RevokeSession(c echo.Context) error {
	if err := h.sessions.Revoke(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "revoked"})
}

// RevokeUser revokes every session of one user.
//
// @Summary      Revoke all sessions of a user
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/users/{id}/logout [post]
func (h *SessionHandler) RevokeUser(c echo.Context) error {
	if err := h.sessions.RevokeAllForUser(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "revoked"})
}

// RevokeAll is the emergency system-wide logout.
//
// @Summary      Revoke every session system-wide
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/sessions/logout-all [post]
func (h *SessionHandler) RevokeAll(c echo.Context) error {
	if err := h.sessions.RevokeAll(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "revoked"})
}
