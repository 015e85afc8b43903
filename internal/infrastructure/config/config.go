package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo MongoConfig
	Redis RedisConfig
	Auth  AuthConfig
	Geo   GeoConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// AuthConfig holds every tunable of the authentication state machine. It is
// injected into services at construction so tests can override TTLs and
// limits deterministically; nothing reads these ad hoc from global state.
type AuthConfig struct {
	// TempTokenTTL bounds the window between credential validation and OTP
	// completion. Capped at 15 minutes by Validate.
	TempTokenTTL time.Duration `env:"AUTH_TEMP_TOKEN_TTL, default=10m"`
	SessionTTL   time.Duration `env:"AUTH_SESSION_TTL,    default=720h"`
	// EnforceOTP forces step-up for every account regardless of the
	// per-user flag.
	EnforceOTP     bool          `env:"AUTH_ENFORCE_OTP,      default=false"`
	OTPLength      int           `env:"AUTH_OTP_LENGTH,       default=6"`
	OTPTTL         time.Duration `env:"AUTH_OTP_TTL,          default=5m"`
	OTPMaxAttempts int           `env:"AUTH_OTP_MAX_ATTEMPTS, default=3"`
	OTPCooldown    time.Duration `env:"AUTH_OTP_COOLDOWN,     default=15m"`
	// TouchInterval throttles lastActiveAt writes: a touch inside the
	// interval since the previous update is dropped.
	TouchInterval time.Duration `env:"AUTH_TOUCH_INTERVAL, default=60s"`
	// RevokeBatchSize bounds each delete issued by system-wide revocation.
	RevokeBatchSize int `env:"AUTH_REVOKE_BATCH_SIZE, default=500"`
	// SweepInterval drives the background hygiene sweep; zero disables it.
	SweepInterval time.Duration `env:"AUTH_SWEEP_INTERVAL, default=10m"`

	// OTP issuance rate limiting (resend throttling).
	OTPResendCooldown time.Duration `env:"AUTH_OTP_RESEND_COOLDOWN, default=30s"`
	OTPRequestWindow  time.Duration `env:"AUTH_OTP_REQUEST_WINDOW,  default=1h"`
	OTPMaxPerWindow   int           `env:"AUTH_OTP_MAX_PER_WINDOW,  default=5"`
}

type GeoConfig struct {
	// Endpoint is the IP geolocation HTTP API; %s is replaced by the IP.
	Endpoint string        `env:"GEO_ENDPOINT, default=http://ip-api.com/json/%s"`
	Timeout  time.Duration `env:"GEO_TIMEOUT,  default=2s"`
	CacheTTL time.Duration `env:"GEO_CACHE_TTL, default=24h"`
}

const maxTempTokenTTL = 15 * time.Minute

// Validate normalises out-of-range auth settings.
func (a *AuthConfig) Validate() {
	if a.TempTokenTTL <= 0 || a.TempTokenTTL > maxTempTokenTTL {
		a.TempTokenTTL = maxTempTokenTTL
	}
	if a.OTPLength < 4 {
		a.OTPLength = 6
	}
	if a.OTPMaxAttempts <= 0 {
		a.OTPMaxAttempts = 3
	}
	if a.RevokeBatchSize <= 0 {
		a.RevokeBatchSize = 500
	}
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	// An empty secret would let temp tokens verify against a zero-length
	// HMAC key, so refuse to start without one.
	if cfg.JWTSecret == "" {
		panic("config: JWT_SECRET is required")
	}
	cfg.Auth.Validate()
	return &cfg
}
