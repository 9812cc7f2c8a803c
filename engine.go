package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/authgate/csrf"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/internal/hashpool"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/session"
)

// Engine authenticates users and validates their sessions.
//
// Engine is built once by [Builder.Build] and is immutable afterwards; it is
// safe for concurrent use. All mutable state lives in Redis and the
// [UserStore].
type Engine struct {
	config       Config
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	hasher       *hashpool.Pool
	jwtManager   *jwt.Manager
	csrf         *csrf.Guard
	users        UserStore
	logger       *zap.Logger
}

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Shutdown is Close bounded by ctx. Audit events still buffered when ctx
// ends are dropped and counted in [Engine.AuditDropped].
func (e *Engine) Shutdown(ctx context.Context) error {
	if e == nil || e.audit == nil {
		return nil
	}
	return e.audit.Shutdown(ctx)
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// CSRF returns the guard used to check double-submit tokens. The HTTP layer
// uses it to extract the supplied token from a request.
func (e *Engine) CSRF() *csrf.Guard {
	return e.csrf
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, err error) {
	e.logger.Warn(msg, zap.Error(err))
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates username and password and opens a new session,
// replacing any session the user already had.
//
// An unknown username, a wrong password and an inactive account all return
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, username, password, e.loginFlowDeps())
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", username, ErrLoginRateLimited, nil)
			e.emitRateLimit(ctx, "login", username)
			return nil, ErrLoginRateLimited
		}
		e.metricInc(MetricSessionStoreError)
		e.warn("login throttle check failed", res.Err)
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", username, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureUserUnavailable:
		e.metricInc(MetricLoginFailure)
		e.warn("user lookup failed", res.Err)
		err := mapUserStoreError(res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", username, err, nil)
		return nil, err
	case flows.LoginFailureSessionUnavailable:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricSessionStoreError)
		e.warn("session write failed", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, username, ErrSessionStoreUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, username, res.Err, nil)
		return nil, res.Err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.User.ID, res.User.Username, nil, nil)

	return &LoginResult{
		User:         userFromRecord(res.User),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		CSRFToken:    res.CSRFToken,
	}, nil
}

func (e *Engine) loginFlowDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		ClientIPFromContext: clientIPFromContext,
		Now:                 time.Now,
		FindUserByUsername: func(ctx context.Context, username string) (flows.UserRecord, error) {
			u, err := e.users.FindByUsername(ctx, username)
			if err != nil {
				return flows.UserRecord{}, err
			}
			return userRecord(u), nil
		},
		IsUserNotFound:       isUserNotFound,
		UpdatePasswordHash:   e.users.UpdatePasswordHash,
		VerifyPassword:       e.hasher.Verify,
		VerifyDummy:          e.hasher.VerifyDummy,
		PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,
		HashPassword:         e.hasher.Hash,
		UpgradeOnLogin:       e.config.Password.UpgradeOnLogin,
		IssueAccess:          e.jwtManager.IssueAccess,
		IssueRefresh:         e.jwtManager.IssueRefresh,
		IssueCSRF:            e.csrf.Issue,
		SaveSession:          e.sessionStore.Put,
		SessionTTL:           e.config.recordTTL(),
		Warn:                 e.warn,
	}
	if e.rateLimiter != nil && e.config.Security.EnableLoginThrottle {
		deps.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}
	return deps
}

/*
====================================
REFRESH
====================================
*/

// Refresh exchanges a refresh token for a new access token. The refresh
// token is bound to the user's live session: after logout or a newer login
// it is rejected with [ErrInvalidToken]. The refresh and CSRF tokens are not
// rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.refreshFlowDeps())
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, "", nil, nil)
		return &RefreshResult{
			UserID:      res.UserID,
			AccessToken: res.AccessToken,
			CSRFToken:   res.CSRFToken,
		}, nil
	}

	var err error
	switch res.Failure {
	case flows.RefreshFailureMissingToken:
		err = ErrNotAuthenticated
	case flows.RefreshFailureTokenExpired:
		err = ErrTokenExpired
	case flows.RefreshFailureTokenInvalid, flows.RefreshFailureSessionMismatch:
		err = ErrInvalidToken
	case flows.RefreshFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.UserID, "", ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "refresh", res.UserID)
			return nil, ErrRefreshRateLimited
		}
		e.metricInc(MetricSessionStoreError)
		e.warn("refresh throttle check failed", res.Err)
		err = fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	case flows.RefreshFailureSessionUnavailable:
		e.metricInc(MetricSessionStoreError)
		e.warn("session read failed", res.Err)
		err = fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	default:
		err = res.Err
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, "", err, nil)
	return nil, err
}

func (e *Engine) refreshFlowDeps() flows.RefreshDeps {
	deps := flows.RefreshDeps{
		VerifyRefresh: func(token string) (*jwt.Claims, error) {
			return e.jwtManager.VerifyClass(token, jwt.ClassRefresh)
		},
		SessionStore: e.sessionStore,
		IssueAccess:  e.jwtManager.IssueAccess,
		SessionTTL:   e.config.recordTTL(),
	}
	if e.rateLimiter != nil && e.config.Security.EnableRefreshThrottle {
		deps.CheckRefreshRate = e.rateLimiter.CheckRefresh
	}
	return deps
}

/*
====================================
AUTHENTICATION GATE
====================================
*/

// Authenticate runs the per-request gate: the access token must verify, must
// be the one stored in the user's live session, the CSRF token must match
// the session, and the user must still exist and be active.
//
// Any session or user store failure fails closed.
func (e *Engine) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	if e == nil || e.sessionStore == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricGateLatency, time.Since(start)) }()
	}

	res := flows.RunGate(ctx, creds.AccessToken, creds.CSRFToken, e.gateFlowDeps())
	if res.Failure == flows.GateFailureNone {
		e.metricInc(MetricGateSuccess)
		return &Identity{
			UserID:   res.User.ID,
			Username: res.User.Username,
			Email:    res.User.Email,
			Role:     res.User.Role,
		}, nil
	}

	var err error
	switch res.Failure {
	case flows.GateFailureMissingToken:
		e.metricInc(MetricGateUnauthenticated)
		return nil, ErrNotAuthenticated
	case flows.GateFailureTokenExpired:
		e.metricInc(MetricGateExpired)
		return nil, ErrTokenExpired
	case flows.GateFailureTokenInvalid:
		e.metricInc(MetricGateInvalidToken)
		return nil, ErrInvalidToken
	case flows.GateFailureSessionMismatch:
		e.metricInc(MetricGateInvalidToken)
		err = ErrInvalidToken
	case flows.GateFailureSessionUnavailable:
		e.metricInc(MetricSessionStoreError)
		e.warn("session read failed", res.Err)
		err = fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, res.Err)
	case flows.GateFailureCSRF:
		e.metricInc(MetricGateCSRFRejected)
		err = ErrInvalidCSRF
	case flows.GateFailureUserNotFound:
		e.metricInc(MetricGateUserNotFound)
		err = ErrUserNotFound
	case flows.GateFailureAccountDisabled:
		e.metricInc(MetricGateAccountDisabled)
		err = ErrAccountDisabled
	case flows.GateFailureUserUnavailable:
		e.warn("user lookup failed", res.Err)
		err = mapUserStoreError(res.Err)
	default:
		err = ErrInvalidToken
	}

	e.emitAudit(ctx, auditEventGateRejected, false, res.UserID, "", err, nil)
	return nil, err
}

func (e *Engine) gateFlowDeps() flows.GateDeps {
	return flows.GateDeps{
		VerifyAccess: func(token string) (*jwt.Claims, error) {
			return e.jwtManager.VerifyClass(token, jwt.ClassAccess)
		},
		SessionStore: e.sessionStore,
		CheckCSRF:    e.csrf.Check,
		FindUserByID: func(ctx context.Context, id string) (flows.UserRecord, error) {
			u, err := e.users.FindByID(ctx, id)
			if err != nil {
				return flows.UserRecord{}, err
			}
			return userRecord(u), nil
		},
		IsUserNotFound: isUserNotFound,
	}
}

// RequireRole reports whether id carries exactly role. It is meant to run
// after [Engine.Authenticate].
func (e *Engine) RequireRole(id *Identity, role string) error {
	if id == nil {
		return ErrNotAuthenticated
	}
	if role == "" || id.Role != role {
		e.metricInc(MetricGateForbidden)
		e.emitAudit(context.Background(), auditEventRoleRejected, false, id.UserID, id.Username, ErrForbidden, func() map[string]string {
			return map[string]string{
				"required": role,
				"actual":   id.Role,
			}
		})
		return ErrForbidden
	}
	return nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout deletes the user's session. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrNotAuthenticated
	}

	if err := flows.RunLogout(ctx, userID, flows.LogoutDeps{SessionStore: e.sessionStore}); err != nil {
		e.metricInc(MetricSessionStoreError)
		e.warn("session delete failed", err)
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
	return nil
}

/*
====================================
OPERATIONS
====================================
*/

// Health checks that the session store is reachable and returns its
// round-trip latency.
func (e *Engine) Health(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	latency, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return latency, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return latency, nil
}

// ActiveSessions returns the number of live session records.
func (e *Engine) ActiveSessions(ctx context.Context) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessionStore.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return n, nil
}

func isUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// mapUserStoreError keeps the store's own sentinels and reports anything
// else as ErrUserStoreUnavailable.
func mapUserStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrDuplicateUsername),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrUserStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
}

func userRecord(u User) flows.UserRecord {
	return flows.UserRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromRecord(r flows.UserRecord) User {
	return User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
}
