package authgate

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding from [Config.Lint]. Warnings never stop
// [Builder.Build]; they point at settings that are valid but risky.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	ws := r.BySeverity(min)
	if len(ws) == 0 {
		return nil
	}
	parts := make([]string, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

const (
	lintMaxLeeway       = 30 * time.Second
	lintMaxAccessTTL    = time.Hour
	lintMaxRefreshTTL   = 30 * 24 * time.Hour
	lintMinArgon2Memory = 19 * 1024
)

// Lint reports settings that pass [Config.Validate] but weaken the gate.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > lintMaxLeeway {
		add("leeway_large", LintWarn, "JWT leeway %s extends every token past its expiry", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > lintMaxAccessTTL {
		add("access_ttl_long", LintWarn, "access tokens live %s; keep them short-lived", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > lintMaxRefreshTTL {
		add("refresh_ttl_long", LintWarn, "refresh tokens live %s", c.JWT.RefreshTTL)
	}
	if c.Session.RecordTTL > 0 && c.Session.RecordTTL < c.JWT.RefreshTTL {
		add("session_shorter_than_refresh", LintInfo,
			"session records expire after %s, before refresh tokens (%s)", c.Session.RecordTTL, c.JWT.RefreshTTL)
	}

	if c.CSRF.AllowCookieFallback {
		add("csrf_cookie_fallback", LintHigh,
			"accepting the CSRF cookie without the header weakens the double-submit check")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("samesite_none", LintHigh, "SameSite=None sends session cookies on cross-site requests")
	}
	if !c.Cookie.Secure {
		sev := LintInfo
		if c.Security.ProductionMode {
			sev = LintHigh
		}
		add("cookies_not_secure", sev, "session cookies are sent over plain HTTP")
	}

	if !c.Security.EnableLoginThrottle {
		add("login_throttle_disabled", LintWarn, "login attempts are not rate limited")
	}
	if c.Password.Memory < lintMinArgon2Memory {
		add("argon2_memory_low", LintWarn, "argon2id memory %d KiB is below %d KiB", c.Password.Memory, lintMinArgon2Memory)
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}

	return ws
}
