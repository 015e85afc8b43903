package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/ports"
)

// Auth resolves the bearer session token and injects the caller's identity
// into the request context. Resolution is the single authorization check:
// revoked, expired, and unknown tokens all yield the same 401. Each
// authenticated request also heartbeats the session (writes are throttled
// inside the session service).
func Auth(sessions ports.SessionService, users ports.UserRepository, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}
			rawToken := parts[1]

			ctx := c.Request().Context()
			session, err := sessions.Resolve(ctx, rawToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			if err := sessions.Touch(ctx, rawToken); err != nil {
				log.Warn().Err(err).Str("session_id", session.ID).Msg("session heartbeat failed")
			}

			user, err := users.FindByID(ctx, session.UserID)
			if err != nil {
				// Account deleted while the session lived; treat as revoked.
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			c.Set("user_id", user.ID)
			c.Set("role", string(user.Role))
			c.Set("session_id", session.ID)

			return next(c)
		}
	}
}
