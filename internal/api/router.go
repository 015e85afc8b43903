package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mesaops/identity-api/internal/api/handler"
	"github.com/mesaops/identity-api/internal/api/middleware"
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
	"github.com/mesaops/identity-api/internal/core/service"
	"github.com/mesaops/identity-api/internal/infrastructure/config"
	mongodb "github.com/mesaops/identity-api/internal/infrastructure/db/mongo"
	redisdb "github.com/mesaops/identity-api/internal/infrastructure/db/redis"
	"github.com/mesaops/identity-api/internal/infrastructure/geo"
	"github.com/mesaops/identity-api/internal/infrastructure/notify"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The audit sink is injected so the caller controls the worker lifecycle.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, audit ports.AuditSink, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Infrastructure ---
	userRepo := mongodb.NewUserRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db)
	otpRepo := mongodb.NewOTPRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)

	geoCache := redisdb.NewGeoCache(rdb, cfg.Geo.CacheTTL)
	geoResolver := geo.NewResolver(cfg.Geo.Endpoint, cfg.Geo.Timeout, geoCache, log)
	otpLimiter := redisdb.NewOTPRateLimiter(rdb, cfg.Auth.OTPResendCooldown, cfg.Auth.OTPRequestWindow, cfg.Auth.OTPMaxPerWindow)
	notifier := notify.NewLogNotifier(log)
	clock := ports.SystemClock()

	// --- Services ---
	sessionService := service.NewSessionService(sessionRepo, geoResolver, clock, service.SessionConfig{
		TTL:             cfg.Auth.SessionTTL,
		TouchInterval:   cfg.Auth.TouchInterval,
		RevokeBatchSize: cfg.Auth.RevokeBatchSize,
	}, log)
	otpService := service.NewOTPService(otpRepo, otpLimiter, notifier, clock, service.OTPConfig{
		CodeLength:  cfg.Auth.OTPLength,
		TTL:         cfg.Auth.OTPTTL,
		MaxAttempts: cfg.Auth.OTPMaxAttempts,
		Cooldown:    cfg.Auth.OTPCooldown,
	}, log)
	authService := service.NewAuthService(userRepo, otpService, sessionService, audit, geoResolver, clock, service.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		TempTokenTTL: cfg.Auth.TempTokenTTL,
		EnforceOTP:   cfg.Auth.EnforceOTP,
	}, log)
	monitorService := service.NewMonitorService(sessionRepo, auditRepo, clock, log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(sessionService, monitorService)
	monitorHandler := handler.NewMonitorHandler(monitorService)

	requireSession := middleware.Auth(sessionService, userRepo, log)
	adminOnly := middleware.RBAC(domain.RoleAdmin, domain.RoleITAccess)

	// --- Auth ceremony (no session required) ---
	e.POST("/v1/auth/login", authHandler.Login)
	e.POST("/v1/auth/otp/issue", authHandler.IssueOTP)
	e.POST("/v1/auth/otp/verify", authHandler.VerifyOTP)

	// --- Self-service session routes ---
	e.POST("/v1/auth/logout", sessionHandler.Logout, requireSession)
	e.GET("/v1/sessions", sessionHandler.List, requireSession)

	// --- Administrative revocation and monitoring ---
	e.POST("/v1/sessions/:id/logout", sessionHandler.RevokeSession, requireSession, adminOnly)
	e.POST("/v1/users/:id/logout", sessionHandler.RevokeUser, requireSession, adminOnly)
	e.POST("/v1/sessions/logout-all", sessionHandler.RevokeAll, requireSession, adminOnly)
	e.GET("/v1/sessions/summary", monitorHandler.Summary, requireSession, adminOnly)
	e.GET("/v1/auth/history", monitorHandler.History, requireSession, adminOnly)

	// --- Metrics ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	return e
}
