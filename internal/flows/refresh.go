package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissingToken
	RefreshFailureTokenExpired
	RefreshFailureTokenInvalid
	RefreshFailureSessionUnavailable
	RefreshFailureSessionMismatch
	RefreshFailureRateLimited
	RefreshFailureInternal
)

// RefreshResult carries the new access token or a classified failure.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	UserID      string
	AccessToken string
	CSRFToken   string
}

type RefreshSessionStore interface {
	Get(ctx context.Context, userID string) (*session.Record, error)
	ReplaceAccess(ctx context.Context, userID, expectedRefresh, newAccess string, ttl time.Duration) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefresh    func(string) (*jwt.Claims, error)
	SessionStore     RefreshSessionStore
	CheckRefreshRate func(context.Context, string) error
	IssueAccess      func(string) (string, error)
	SessionTTL       time.Duration
}

// RunRefresh exchanges a refresh token bound to the live session record for
// a new access token. The refresh token itself is left unchanged, as is the
// CSRF token; the record's access field and TTL are replaced atomically.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissingToken}
	}

	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return RefreshResult{Failure: RefreshFailureTokenExpired, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureTokenInvalid, Err: err}
	}
	userID := claims.Subject

	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, userID); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, UserID: userID}
		}
	}

	rec, err := deps.SessionStore.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureSessionMismatch, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureSessionUnavailable, Err: err, UserID: userID}
	}
	if rec.Refresh == "" || subtle.ConstantTimeCompare([]byte(rec.Refresh), []byte(refreshToken)) != 1 {
		return RefreshResult{Failure: RefreshFailureSessionMismatch, UserID: userID}
	}

	access, err := deps.IssueAccess(userID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInternal, Err: err, UserID: userID}
	}

	if err := deps.SessionStore.ReplaceAccess(ctx, userID, refreshToken, access, deps.SessionTTL); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrRefreshMismatch) {
			return RefreshResult{Failure: RefreshFailureSessionMismatch, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureSessionUnavailable, Err: err, UserID: userID}
	}

	return RefreshResult{
		UserID:      userID,
		AccessToken: access,
		CSRFToken:   rec.CSRF,
	}
}
