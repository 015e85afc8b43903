package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn     func(ctx context.Context, email, password string, client ports.ClientInfo) (*ports.LoginOutcome, error)
	parseFn     func(token string) (*ports.PendingChallenge, error)
	issueOTPFn  func(ctx context.Context, tempToken string, purpose domain.OTPPurpose) error
	verifyOTPFn func(ctx context.Context, tempToken string, purpose domain.OTPPurpose, code string, client ports.ClientInfo) (*ports.SessionGrant, error)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string, client ports.ClientInfo) (*ports.LoginOutcome, error) {
	return s.loginFn(ctx, email, password, client)
}

func (s *stubAuthService) ParseTempToken(token string) (*ports.PendingChallenge, error) {
	return s.parseFn(token)
}

func (s *stubAuthService) IssueOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose) error {
	return s.issueOTPFn(ctx, tempToken, purpose)
}

func (s *stubAuthService) VerifyOTP(ctx context.Context, tempToken string, purpose domain.OTPPurpose, code string, client ports.ClientInfo) (*ports.SessionGrant, error) {
	return s.verifyOTPFn(ctx, tempToken, purpose, code, client)
}

func newTestContext(t *testing.T, method, target, body, bearer string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Login_DirectSession(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string, _ ports.ClientInfo) (*ports.LoginOutcome, error) {
			if email != "ana@example.com" || password != "s3cret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.LoginOutcome{
				Role:         domain.RoleCustomer,
				LandingRoute: "/menu",
				Session:      &domain.Session{ID: "sess-1", UserID: "u1"},
				SessionToken: "raw-token",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"s3cret"}`, "")
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["requires_otp"] != false {
		t.Fatalf("requires_otp = %v, want false", resp["requires_otp"])
	}
	if resp["session_token"] != "raw-token" || resp["landing_route"] != "/menu" {
		t.Fatalf("unexpected payload: %v", resp)
	}
	session, ok := resp["session"].(map[string]any)
	if !ok || session["id"] != "sess-1" {
		t.Fatalf("expected session in response, got %v", resp["session"])
	}
}

func TestAuthHandler_Login_StepUpPending(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, ports.ClientInfo) (*ports.LoginOutcome, error) {
			return &ports.LoginOutcome{
				RequiresOTP:  true,
				TempToken:    "temp-jwt",
				Role:         domain.RoleAdmin,
				LandingRoute: "/admin/dashboard",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/login", `{"email":"bo@example.com","password":"s3cret"}`, "")
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["requires_otp"] != true || resp["token"] != "temp-jwt" {
		t.Fatalf("unexpected payload: %v", resp)
	}
	if _, ok := resp["session"]; ok {
		t.Fatal("pending login must not carry a session")
	}
	if _, ok := resp["session_token"]; ok {
		t.Fatal("pending login must not carry a session token")
	}
}

func TestAuthHandler_Login_ErrorsPassThrough(t *testing.T) {
	// Domain errors surface to the central error handler untouched.
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, ports.ClientInfo) (*ports.LoginOutcome, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"bad"}`, "")
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, ports.ClientInfo) (*ports.LoginOutcome, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing password", `{"email":"ana@example.com"}`},
		{"bad email", `{"email":"nope","password":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestContext(t, http.MethodPost, "/v1/auth/login", tc.body, "")
			err := h.Login(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
		})
	}
}

func TestAuthHandler_IssueOTP(t *testing.T) {
	var gotToken string
	var gotPurpose domain.OTPPurpose
	stub := &stubAuthService{
		issueOTPFn: func(_ context.Context, tempToken string, purpose domain.OTPPurpose) error {
			gotToken = tempToken
			gotPurpose = purpose
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/otp/issue", `{"purpose":"login"}`, "temp-jwt")
	if err := h.IssueOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if gotToken != "temp-jwt" || gotPurpose != domain.PurposeLogin {
		t.Fatalf("service called with %q %q", gotToken, gotPurpose)
	}
}

func TestAuthHandler_IssueOTP_MissingBearer(t *testing.T) {
	stub := &stubAuthService{
		issueOTPFn: func(context.Context, string, domain.OTPPurpose) error {
			t.Fatal("service must not be called")
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/auth/otp/issue", `{"purpose":"login"}`, "")
	err := h.IssueOTP(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthHandler_IssueOTP_UnknownPurpose(t *testing.T) {
	stub := &stubAuthService{
		issueOTPFn: func(context.Context, string, domain.OTPPurpose) error {
			t.Fatal("service must not be called")
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/auth/otp/issue", `{"purpose":"password_reset"}`, "temp-jwt")
	err := h.IssueOTP(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_VerifyOTP_Success(t *testing.T) {
	stub := &stubAuthService{
		verifyOTPFn: func(_ context.Context, tempToken string, purpose domain.OTPPurpose, code string, _ ports.ClientInfo) (*ports.SessionGrant, error) {
			if tempToken != "temp-jwt" || purpose != domain.PurposeLogin || code != "123456" {
				t.Fatalf("unexpected args: %s %s %s", tempToken, purpose, code)
			}
			return &ports.SessionGrant{
				Session:      &domain.Session{ID: "sess-1", UserID: "u2"},
				SessionToken: "raw-token",
				Role:         domain.RoleAdmin,
				LandingRoute: "/admin/dashboard",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/otp/verify", `{"purpose":"login","code":"123456"}`, "temp-jwt")
	if err := h.VerifyOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["session_token"] != "raw-token" || resp["landing_route"] != "/admin/dashboard" {
		t.Fatalf("unexpected payload: %v", resp)
	}
}

func TestAuthHandler_VerifyOTP_Mismatch(t *testing.T) {
	stub := &stubAuthService{
		verifyOTPFn: func(context.Context, string, domain.OTPPurpose, string, ports.ClientInfo) (*ports.SessionGrant, error) {
			return nil, domain.ErrOTPMismatch
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/auth/otp/verify", `{"purpose":"login","code":"000000"}`, "temp-jwt")
	if err := h.VerifyOTP(c); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Fatalf("expected ErrOTPMismatch, got %v", err)
	}
}

func TestAuthHandler_VerifyOTP_NonNumericCode(t *testing.T) {
	stub := &stubAuthService{
		verifyOTPFn: func(context.Context, string, domain.OTPPurpose, string, ports.ClientInfo) (*ports.SessionGrant, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/auth/otp/verify", `{"purpose":"login","code":"abcdef"}`, "temp-jwt")
	err := h.VerifyOTP(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
