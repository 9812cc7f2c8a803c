package authgate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
)

// Config is the complete Engine configuration. Start from [DefaultConfig]
// and override fields; the Engine copies it at Build time.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	CSRF     CSRFConfig
	Cookie   CookieConfig
	Account  AccountConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the token signing key and lifetimes.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SigningKey []byte // HS256, at least 32 bytes
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session record.
type SessionConfig struct {
	RedisPrefix string
	// RecordTTL is the lifetime of the session record. Zero means RefreshTTL,
	// which keeps a refresh token usable for its whole lifetime.
	RecordTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost, the strength policy and the hashing
// concurrency limit.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	Policy password.Policy

	// HashConcurrency bounds simultaneous hash operations. Zero means NumCPU.
	HashConcurrency int
}

/*
====================================
CSRF / COOKIE CONFIG
====================================
*/

// CSRFConfig controls where the double-submit token is read from.
type CSRFConfig struct {
	HeaderName string
	// AllowCookieFallback accepts the csrf cookie when the header is missing.
	// This is weaker than header-only mode and is off by default.
	AllowCookieFallback bool
}

// CookieConfig names and scopes the three cookies set at login.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	CSRFName    string
	Domain      string
	Path        string
	Secure      bool
	SameSite    http.SameSite
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds throttling and deployment hardening switches.
type SecurityConfig struct {
	ProductionMode          bool
	EnableLoginThrottle     bool
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	RateLimitPrefix         string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.SigningKey is left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     0,
		},
		Session: SessionConfig{
			RedisPrefix: "session",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			Policy:         password.DefaultPolicy(),
		},
		CSRF: CSRFConfig{
			HeaderName:          "X-CSRF-Token",
			AllowCookieFallback: false,
		},
		Cookie: CookieConfig{
			AccessName:  "auth_token",
			RefreshName: "refresh_token",
			CSRFName:    "csrf_token",
			Path:        "/",
			Secure:      false,
			SameSite:    http.SameSiteLaxMode,
		},
		Account: AccountConfig{
			DefaultRole: "user",
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			EnableLoginThrottle:     true,
			EnableIPThrottle:        false,
			EnableRefreshThrottle:   false,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      60,
			RefreshCooldownDuration: time.Minute,
			RateLimitPrefix:         "rl",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// recordTTL resolves the effective session record lifetime.
func (c *Config) recordTTL() time.Duration {
	if c.Session.RecordTTL > 0 {
		return c.Session.RecordTTL
	}
	return c.JWT.RefreshTTL
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL > c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be <= RefreshTTL")
	}
	if len(c.JWT.SigningKey) < jwt.MinKeyLength {
		return fmt.Errorf("JWT SigningKey must be at least %d bytes", jwt.MinKeyLength)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.RecordTTL < 0 {
		return errors.New("Session RecordTTL must be >= 0")
	}
	if c.recordTTL() < c.JWT.AccessTTL {
		return errors.New("Session RecordTTL must be >= JWT AccessTTL")
	}

	// Password
	if err := c.Password.Policy.Validate(); err != nil {
		return err
	}
	if c.Password.HashConcurrency < 0 {
		return errors.New("Password HashConcurrency must be >= 0")
	}

	// CSRF / cookies
	if strings.TrimSpace(c.CSRF.HeaderName) == "" {
		return errors.New("CSRF HeaderName must not be empty")
	}
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" || c.Cookie.CSRFName == "" {
		return errors.New("Cookie names must not be empty")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName ||
		c.Cookie.AccessName == c.Cookie.CSRFName ||
		c.Cookie.RefreshName == c.Cookie.CSRFName {
		return errors.New("Cookie names must be distinct")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Account
	if strings.TrimSpace(c.Account.DefaultRole) == "" {
		return errors.New("Account DefaultRole must not be empty")
	}

	// Security
	if c.Security.ProductionMode {
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires secure cookies")
		}
		if c.CSRF.AllowCookieFallback {
			return errors.New("ProductionMode forbids the CSRF cookie fallback")
		}
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
