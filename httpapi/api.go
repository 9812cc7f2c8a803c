// Package httpapi serves the authentication endpoints over HTTP.
//
// Routes:
//
//	POST   /register              create an account
//	POST   /login                 open a session, set the three cookies
//	POST   /refresh-token         re-issue the access token
//	POST   /logout                delete the session, clear cookies
//	GET    /protected             echo the authenticated user
//	DELETE /delete-user/{user_id} delete the caller's own account
//	GET    /admin/sessions        count live sessions (role admin)
//	GET    /healthz               session store reachability
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
)

// AdminRole is the role required by the admin routes.
const AdminRole = "admin"

const maxBodyBytes = 1 << 20

// API holds the dependencies needed by the handlers.
type API struct {
	engine *authgate.Engine
	logger *zap.Logger

	cookies    authgate.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the logger for server-side failures. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an API backed by engine.
func New(engine *authgate.Engine, opts ...Option) *API {
	cfg := engine.Config()
	a := &API{
		engine:     engine,
		logger:     zap.NewNop(),
		cookies:    cfg.Cookie,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Post("/register", a.Register)
	r.Post("/login", a.Login)
	r.Post("/refresh-token", a.RefreshToken)
	r.Get("/healthz", a.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(a.engine))
		r.Post("/logout", a.Logout)
		r.Get("/protected", a.Protected)
		r.Delete("/delete-user/{user_id}", a.DeleteUser)
	})

	r.With(middleware.RequireRole(a.engine, AdminRole)).Get("/admin/sessions", a.AdminSessions)

	return r
}

// fail writes err and logs it when it is the server's fault.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := middleware.StatusFor(err); status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	middleware.WriteError(w, err)
}
