package authgate

import (
	"net/http"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "baseline valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "signing key too short",
			mutate: func(c *Config) {
				c.JWT.SigningKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "access ttl longer than refresh",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 48 * time.Hour
				c.JWT.RefreshTTL = 24 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "record ttl shorter than access",
			mutate: func(c *Config) {
				c.Session.RecordTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "empty redis prefix",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = " "
			},
			wantValid: false,
		},
		{
			name: "policy below floor",
			mutate: func(c *Config) {
				c.Password.Policy.MinLength = 4
			},
			wantValid: false,
		},
		{
			name: "policy without max length",
			mutate: func(c *Config) {
				c.Password.Policy.MaxLength = 0
			},
			wantValid: false,
		},
		{
			name: "duplicate cookie names",
			mutate: func(c *Config) {
				c.Cookie.CSRFName = c.Cookie.AccessName
			},
			wantValid: false,
		},
		{
			name: "samesite none without secure",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = false
			},
			wantValid: false,
		},
		{
			name: "production requires secure cookies",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
			},
			wantValid: false,
		},
		{
			name: "production forbids csrf cookie fallback",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.Cookie.Secure = true
				c.CSRF.AllowCookieFallback = true
			},
			wantValid: false,
		},
		{
			name: "production hardened",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.Cookie.Secure = true
			},
			wantValid: true,
		},
		{
			name: "login throttle needs budget",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "login throttle disabled ignores budget",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = false
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "audit buffer required",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "empty default role",
			mutate: func(c *Config) {
				c.Account.DefaultRole = ""
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestRecordTTLDefaultsToRefreshTTL(t *testing.T) {
	cfg := testConfig()
	if got := cfg.recordTTL(); got != cfg.JWT.RefreshTTL {
		t.Fatalf("expected %v, got %v", cfg.JWT.RefreshTTL, got)
	}
	cfg.Session.RecordTTL = 2 * time.Hour
	if got := cfg.recordTTL(); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", got)
	}
}

func TestCloneConfigCopiesSigningKey(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.JWT.SigningKey[0] ^= 0xff
	if cfg.JWT.SigningKey[0] == clone.JWT.SigningKey[0] {
		t.Fatal("expected cloned signing key to be independent")
	}
}
