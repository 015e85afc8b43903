package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

// AuthHandler exposes the login ceremony: credential validation, OTP
// issuance, and OTP verification.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login validates credentials and either returns a temp bridge token
// (step-up required) or a full session.
//
// @Summary      Validate credentials and start a login ceremony
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		return err
	}

	resp := loginResponse{
		RequiresOTP:  outcome.RequiresOTP,
		Token:        outcome.TempToken,
		SessionToken: outcome.SessionToken,
		Role:         string(outcome.Role),
		LandingRoute: outcome.LandingRoute,
		Session:      toSessionResponse(outcome.Session),
	}
	return c.JSON(http.StatusOK, resp)
}

// IssueOTP creates (or supersedes) the one-time-code challenge for the
// pending login identified by the bearer temp token.
//
// @Summary      Issue a one-time code for a pending login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      issueOTPRequest  true  "Challenge purpose"
// @Success      202   {object}  map[string]string
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/auth/otp/issue [post]
func (h *AuthHandler) IssueOTP(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	var req issueOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.IssueOTP(c.Request().Context(), token, domain.OTPPurpose(req.Purpose)); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyOTP checks the submitted code and completes the login ceremony.
//
// @Summary      Verify a one-time code and obtain a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyOTPRequest  true  "Challenge purpose and code"
// @Success      200   {object}  verifyOTPResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      410   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	grant, err := h.authService.VerifyOTP(c.Request().Context(), token, domain.OTPPurpose(req.Purpose), req.Code, clientInfo(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, verifyOTPResponse{
		SessionToken: grant.SessionToken,
		Role:         string(grant.Role),
		LandingRoute: grant.LandingRoute,
		Session:      toSessionResponse(grant.Session),
	})
}

// bearerToken extracts the Authorization bearer credential.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// clientInfo captures the request metadata bound to sessions and audit
// entries.
func clientInfo(c echo.Context) ports.ClientInfo {
	return ports.ClientInfo{
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	}
}
