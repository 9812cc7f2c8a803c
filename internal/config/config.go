// Package config loads the authgate service configuration from a YAML file
// and AUTHGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/MrEthical07/authgate"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// RedisMemory as the Redis address starts an embedded miniredis. It is meant
// for local development only.
const RedisMemory = "memory"

// Config is the process configuration.
type Config struct {
	Env      string `yaml:"env" env:"AUTHGATE_ENV" env-default:"local" env-description:"local, dev or prod"`
	HTTP     HTTP     `yaml:"http"`
	Redis    Redis    `yaml:"redis"`
	Store    Store    `yaml:"store"`
	JWT      JWT      `yaml:"jwt"`
	Session  Session  `yaml:"session"`
	Password Password `yaml:"password"`
	Cookie   Cookie   `yaml:"cookie"`
	Security Security `yaml:"security"`
	Audit    Audit    `yaml:"audit"`
	Metrics  Metrics  `yaml:"metrics"`
}

type HTTP struct {
	Address         string        `yaml:"address" env:"AUTHGATE_HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"AUTHGATE_HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"AUTHGATE_HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"AUTHGATE_HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"AUTHGATE_HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"AUTHGATE_REDIS_ADDR" env-default:"localhost:6379" env-description:"host:port, or \"memory\" for an embedded server"`
	Password string `yaml:"password" env:"AUTHGATE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"AUTHGATE_REDIS_DB" env-default:"0"`
}

type Store struct {
	Driver      string `yaml:"driver" env:"AUTHGATE_STORE_DRIVER" env-default:"memory" env-description:"memory, postgres or bolt"`
	PostgresDSN string `yaml:"postgres_dsn" env:"AUTHGATE_POSTGRES_DSN"`
	BoltPath    string `yaml:"bolt_path" env:"AUTHGATE_BOLT_PATH" env-default:"./data/users.db"`
}

type JWT struct {
	Secret     string        `yaml:"secret" env:"AUTHGATE_JWT_SECRET" env-description:"HS256 signing key, at least 32 bytes"`
	Issuer     string        `yaml:"issuer" env:"AUTHGATE_JWT_ISSUER"`
	Audience   string        `yaml:"audience" env:"AUTHGATE_JWT_AUDIENCE"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"AUTHGATE_JWT_ACCESS_TTL" env-default:"1h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"AUTHGATE_JWT_REFRESH_TTL" env-default:"168h"`
	Leeway     time.Duration `yaml:"leeway" env:"AUTHGATE_JWT_LEEWAY" env-default:"0s"`
}

type Session struct {
	RedisPrefix string        `yaml:"redis_prefix" env:"AUTHGATE_SESSION_PREFIX" env-default:"session"`
	RecordTTL   time.Duration `yaml:"record_ttl" env:"AUTHGATE_SESSION_RECORD_TTL" env-default:"0s"`
}

type Password struct {
	Memory          uint32 `yaml:"memory_kib" env:"AUTHGATE_ARGON2_MEMORY" env-default:"65536"`
	Time            uint32 `yaml:"time" env:"AUTHGATE_ARGON2_TIME" env-default:"3"`
	Parallelism     uint8  `yaml:"parallelism" env:"AUTHGATE_ARGON2_PARALLELISM" env-default:"2"`
	HashConcurrency int    `yaml:"hash_concurrency" env:"AUTHGATE_HASH_CONCURRENCY" env-default:"0"`
	MinLength       int    `yaml:"min_length" env:"AUTHGATE_PASSWORD_MIN_LENGTH" env-default:"8"`
}

type Cookie struct {
	Domain   string `yaml:"domain" env:"AUTHGATE_COOKIE_DOMAIN"`
	Secure   bool   `yaml:"secure" env:"AUTHGATE_COOKIE_SECURE"`
	SameSite string `yaml:"same_site" env:"AUTHGATE_COOKIE_SAMESITE" env-default:"lax" env-description:"lax, strict or none"`
	// CSRFCookieFallback accepts the csrf cookie when the header is absent.
	CSRFCookieFallback bool `yaml:"csrf_cookie_fallback" env:"AUTHGATE_CSRF_COOKIE_FALLBACK"`
}

type Security struct {
	ProductionMode       bool          `yaml:"production_mode" env:"AUTHGATE_PRODUCTION_MODE"`
	DisableLoginThrottle bool          `yaml:"disable_login_throttle" env:"AUTHGATE_DISABLE_LOGIN_THROTTLE"`
	IPThrottle           bool          `yaml:"ip_throttle" env:"AUTHGATE_IP_THROTTLE"`
	RefreshThrottle      bool          `yaml:"refresh_throttle" env:"AUTHGATE_REFRESH_THROTTLE"`
	MaxLoginAttempts     int           `yaml:"max_login_attempts" env:"AUTHGATE_MAX_LOGIN_ATTEMPTS" env-default:"5"`
	LoginCooldown        time.Duration `yaml:"login_cooldown" env:"AUTHGATE_LOGIN_COOLDOWN" env-default:"15m"`
	MaxRefreshAttempts   int           `yaml:"max_refresh_attempts" env:"AUTHGATE_MAX_REFRESH_ATTEMPTS" env-default:"60"`
	RefreshCooldown      time.Duration `yaml:"refresh_cooldown" env:"AUTHGATE_REFRESH_COOLDOWN" env-default:"1m"`
}

type Audit struct {
	Enabled    bool `yaml:"enabled" env:"AUTHGATE_AUDIT_ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"AUTHGATE_AUDIT_BUFFER" env-default:"1024"`
}

type Metrics struct {
	Enabled    bool   `yaml:"enabled" env:"AUTHGATE_METRICS_ENABLED"`
	Histograms bool   `yaml:"histograms" env:"AUTHGATE_METRICS_HISTOGRAMS"`
	Path       string `yaml:"path" env:"AUTHGATE_METRICS_PATH" env-default:"/metrics"`
}

// Load reads path, when set, and then applies environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Describe lists the supported environment variables.
func Describe() (string, error) {
	header := "Environment variables:"
	return cleanenv.GetDescription(&Config{}, &header)
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreBolt:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		return err
	}
	return nil
}

// Development reports whether the process runs outside production.
func (c *Config) Development() bool {
	return c.Env != "prod"
}

// Engine converts c into an engine configuration and validates it.
func (c *Config) Engine() (authgate.Config, error) {
	sameSite, err := parseSameSite(c.Cookie.SameSite)
	if err != nil {
		return authgate.Config{}, err
	}

	out := authgate.DefaultConfig()

	out.JWT.SigningKey = []byte(c.JWT.Secret)
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.JWT.Leeway = c.JWT.Leeway

	out.Session.RedisPrefix = c.Session.RedisPrefix
	out.Session.RecordTTL = c.Session.RecordTTL

	out.Password.Memory = c.Password.Memory
	out.Password.Time = c.Password.Time
	out.Password.Parallelism = c.Password.Parallelism
	out.Password.HashConcurrency = c.Password.HashConcurrency
	out.Password.Policy.MinLength = c.Password.MinLength

	out.Cookie.Domain = c.Cookie.Domain
	out.Cookie.Secure = c.Cookie.Secure || c.Security.ProductionMode
	out.Cookie.SameSite = sameSite
	out.CSRF.AllowCookieFallback = c.Cookie.CSRFCookieFallback

	out.Security.ProductionMode = c.Security.ProductionMode
	out.Security.EnableLoginThrottle = !c.Security.DisableLoginThrottle
	out.Security.EnableIPThrottle = c.Security.IPThrottle
	out.Security.EnableRefreshThrottle = c.Security.RefreshThrottle
	out.Security.MaxLoginAttempts = c.Security.MaxLoginAttempts
	out.Security.LoginCooldownDuration = c.Security.LoginCooldown
	out.Security.MaxRefreshAttempts = c.Security.MaxRefreshAttempts
	out.Security.RefreshCooldownDuration = c.Security.RefreshCooldown

	out.Audit.Enabled = c.Audit.Enabled
	out.Audit.BufferSize = c.Audit.BufferSize

	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Histograms

	if err := out.Validate(); err != nil {
		return authgate.Config{}, err
	}
	return out, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown cookie same_site %q", v)
	}
}
