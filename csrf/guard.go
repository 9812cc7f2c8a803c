package csrf

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate/internal"
)

const (
	// DefaultHeaderName is the request header carrying the echoed token.
	DefaultHeaderName = "X-CSRF-Token"
	// DefaultCookieName is the readable cookie holding the token.
	DefaultCookieName = "csrf_token"
)

// Config selects where Extract looks for the supplied token.
type Config struct {
	HeaderName string
	CookieName string
	// AllowCookieFallback accepts the cookie value when the header is absent.
	// A cookie is sent automatically by the browser, so this mode only proves
	// that the request carries the cookie jar, not that the page could read it.
	AllowCookieFallback bool
}

// Guard issues and checks CSRF tokens.
type Guard struct {
	cfg Config
}

// New returns a Guard with defaults filled in.
func New(cfg Config) *Guard {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Guard{cfg: cfg}
}

// Issue returns a fresh 256-bit token.
func (g *Guard) Issue() (string, error) {
	return internal.RandomToken(internal.TokenBytes)
}

// Check compares the stored and supplied tokens in constant time. An empty
// value on either side never matches.
func (g *Guard) Check(expected, supplied string) bool {
	if expected == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

// Extract returns the supplied token from r and whether it came from the
// cookie fallback.
func (g *Guard) Extract(r *http.Request) (string, bool) {
	if v := strings.TrimSpace(r.Header.Get(g.cfg.HeaderName)); v != "" {
		return v, false
	}
	if !g.cfg.AllowCookieFallback {
		return "", false
	}
	c, err := r.Cookie(g.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// HeaderName reports the configured header.
func (g *Guard) HeaderName() string { return g.cfg.HeaderName }

// CookieName reports the configured cookie.
func (g *Guard) CookieName() string { return g.cfg.CookieName }
