package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

type stubSessions struct {
	session  *domain.Session
	touched  int
	touchErr error
}

func (s *stubSessions) Create(context.Context, string, ports.ClientInfo) (*domain.Session, string, error) {
	return nil, "", nil
}

func (s *stubSessions) Resolve(_ context.Context, rawToken string) (*domain.Session, error) {
	if s.session == nil || rawToken != "good-token" {
		return nil, domain.ErrSessionNotFound
	}
	return s.session, nil
}

func (s *stubSessions) Touch(context.Context, string) error {
	s.touched++
	return s.touchErr
}

func (s *stubSessions) List(context.Context, string) ([]domain.Session, error) { return nil, nil }
func (s *stubSessions) Revoke(context.Context, string) error                   { return nil }
func (s *stubSessions) RevokeAllForUser(context.Context, string) error         { return nil }
func (s *stubSessions) RevokeAll(context.Context) error                        { return nil }

type stubUsers struct {
	user *domain.User
}

func (r *stubUsers) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (r *stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, domain.ErrUserNotFound
	}
	clone := *r.user
	return &clone, nil
}

func newAuthFixtures() (*stubSessions, *stubUsers) {
	sessions := &stubSessions{
		session: &domain.Session{ID: "sess-1", UserID: "u1"},
	}
	users := &stubUsers{
		user: &domain.User{ID: "u1", Email: "ana@example.com", Role: domain.RoleCustomer},
	}
	return sessions, users
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	sessions, users := newAuthFixtures()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get("user_id") != "u1" {
			t.Fatalf("user_id not set")
		}
		if c.Get("role") != "customer" {
			t.Fatalf("role not set")
		}
		if c.Get("session_id") != "sess-1" {
			t.Fatalf("session_id not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if sessions.touched != 1 {
		t.Fatalf("touched = %d, want 1", sessions.touched)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	sessions, users := newAuthFixtures()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	e := echo.New()
	sessions, users := newAuthFixtures()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_UnknownToken(t *testing.T) {
	e := echo.New()
	sessions, users := newAuthFixtures()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked-or-unknown")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_DeletedUser(t *testing.T) {
	e := echo.New()
	sessions, _ := newAuthFixtures()
	users := &stubUsers{} // account gone

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_TouchFailureDoesNotBlock(t *testing.T) {
	e := echo.New()
	sessions, users := newAuthFixtures()
	sessions.touchErr = context.DeadlineExceeded

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("heartbeat failure must not block the request")
	}
}
