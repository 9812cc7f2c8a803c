package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate"
)

// Guard returns middleware that authenticates every request through
// engine.Authenticate. On success the identity is available to next via
// [authgate.IdentityFromContext].
func Guard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if engine == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				WriteError(w, authgate.ErrEngineNotReady)
			})
		}

		accessCookie := engine.Config().Cookie.AccessName
		guard := engine.CSRF()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := RequestContext(r)

			csrfToken, _ := guard.Extract(r)
			id, err := engine.Authenticate(ctx, authgate.Credentials{
				AccessToken: accessToken(r, accessCookie),
				CSRFToken:   csrfToken,
			})
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(authgate.WithIdentity(ctx, id)))
		})
	}
}

// RequireRole returns middleware that runs [Guard] and then rejects callers
// whose role is not exactly role.
func RequireRole(engine *authgate.Engine, role string) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := authgate.IdentityFromContext(r.Context())
			if err := engine.RequireRole(id, role); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
		return guard(check)
	}
}

// RequestContext returns r's context carrying the client IP and User-Agent
// used for login throttling and audit events. Only RemoteAddr is trusted;
// deployments behind a proxy should rewrite it with a real-IP middleware
// first.
func RequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	ctx := authgate.WithClientIP(r.Context(), host)
	return authgate.WithUserAgent(ctx, r.UserAgent())
}

// accessToken prefers the cookie and falls back to a bearer header.
func accessToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
