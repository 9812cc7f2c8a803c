package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
)

func badRequest(w http.ResponseWriter, err error) {
	middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

// Register handles POST /register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	err := decodeBody(w, r, &req, map[string]*string{
		"username": &req.Username,
		"email":    &req.Email,
		"password": &req.Password,
	})
	if err != nil {
		badRequest(w, err)
		return
	}

	u, err := a.engine.Register(middleware.RequestContext(r), authgate.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, userResponse(*u))
}

// Login handles POST /login. The body is form-encoded; JSON is also
// accepted.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	err := decodeBody(w, r, &req, map[string]*string{
		"username": &req.Username,
		"password": &req.Password,
	})
	if err != nil {
		badRequest(w, err)
		return
	}

	res, err := a.engine.Login(middleware.RequestContext(r), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.setSessionCookies(w, res.AccessToken, res.RefreshToken, res.CSRFToken)
	middleware.WriteJSON(w, http.StatusOK, SessionResponse{User: userResponse(res.User)})
}

// RefreshToken handles POST /refresh-token using the refresh cookie.
func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(a.cookies.RefreshName); err == nil {
		token = c.Value
	}

	res, err := a.engine.Refresh(middleware.RequestContext(r), token)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.setAccessCookies(w, res.AccessToken, res.CSRFToken)
	middleware.WriteJSON(w, http.StatusOK, StatusResponse{Status: "refreshed"})
}

// Logout handles POST /logout. It runs behind the gate, so the caller has
// already presented a live session and a matching CSRF token.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := authgate.IdentityFromContext(r.Context())
	if id == nil {
		a.fail(w, r, authgate.ErrNotAuthenticated)
		return
	}

	if err := a.engine.Logout(r.Context(), id.UserID); err != nil {
		a.fail(w, r, err)
		return
	}

	a.clearSessionCookies(w)
	middleware.WriteJSON(w, http.StatusOK, StatusResponse{Status: "logged out"})
}

// Protected handles GET /protected.
func (a *API) Protected(w http.ResponseWriter, r *http.Request) {
	id, _ := authgate.IdentityFromContext(r.Context())
	if id == nil {
		a.fail(w, r, authgate.ErrNotAuthenticated)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, SessionResponse{User: identityResponse(id)})
}

// DeleteUser handles DELETE /delete-user/{user_id}. Callers may only delete
// their own account.
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := authgate.IdentityFromContext(r.Context())
	target := chi.URLParam(r, "user_id")

	if err := a.engine.DeleteUser(r.Context(), id, target); err != nil {
		a.fail(w, r, err)
		return
	}

	a.clearSessionCookies(w)
	middleware.WriteJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// AdminSessions handles GET /admin/sessions.
func (a *API) AdminSessions(w http.ResponseWriter, r *http.Request) {
	n, err := a.engine.ActiveSessions(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, SessionsResponse{ActiveSessions: n})
}

// Healthz handles GET /healthz.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	latency, err := a.engine.Health(r.Context())
	if err != nil {
		if !errors.Is(err, authgate.ErrSessionStoreUnavailable) {
			a.fail(w, r, err)
			return
		}
		a.logger.Warn("health check failed", zap.Error(err))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		RedisLatencyMS: float64(latency) / float64(time.Millisecond),
	})
}
