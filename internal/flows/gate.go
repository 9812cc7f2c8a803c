package flows

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/session"
)

// GateFailureKind classifies authentication-gate failures for root-level mapping.
type GateFailureKind int

const (
	GateFailureNone GateFailureKind = iota
	GateFailureMissingToken
	GateFailureTokenExpired
	GateFailureTokenInvalid
	GateFailureSessionUnavailable
	GateFailureSessionMismatch
	GateFailureCSRF
	GateFailureUserNotFound
	GateFailureUserUnavailable
	GateFailureAccountDisabled
)

// GateResult carries either the resolved user or a classified failure.
type GateResult struct {
	Failure GateFailureKind
	Err     error
	UserID  string
	User    UserRecord
}

type GateSessionStore interface {
	Get(ctx context.Context, userID string) (*session.Record, error)
}

// GateDeps captures the authentication gate dependencies.
type GateDeps struct {
	VerifyAccess   func(string) (*jwt.Claims, error)
	SessionStore   GateSessionStore
	CheckCSRF      func(expected, supplied string) bool
	FindUserByID   func(context.Context, string) (UserRecord, error)
	IsUserNotFound func(error) bool
}

// RunGate executes the per-request pipeline. Each step short-circuits:
//
//  1. an access token must be present
//  2. its signature, class and expiry must verify
//  3. it must equal the access field of the user's live session record
//  4. the supplied CSRF token must equal the record's csrf field
//  5. the user must still exist and be active
func RunGate(ctx context.Context, accessToken, csrfToken string, deps GateDeps) GateResult {
	if accessToken == "" {
		return GateResult{Failure: GateFailureMissingToken}
	}

	claims, err := deps.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return GateResult{Failure: GateFailureTokenExpired, Err: err}
		}
		return GateResult{Failure: GateFailureTokenInvalid, Err: err}
	}
	userID := claims.Subject

	rec, err := deps.SessionStore.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return GateResult{Failure: GateFailureSessionMismatch, Err: err, UserID: userID}
		}
		return GateResult{Failure: GateFailureSessionUnavailable, Err: err, UserID: userID}
	}
	if !equalTokens(rec.Access, accessToken) {
		return GateResult{Failure: GateFailureSessionMismatch, UserID: userID}
	}

	if !deps.CheckCSRF(rec.CSRF, csrfToken) {
		return GateResult{Failure: GateFailureCSRF, UserID: userID}
	}

	user, err := deps.FindUserByID(ctx, userID)
	if err != nil {
		if deps.IsUserNotFound(err) {
			return GateResult{Failure: GateFailureUserNotFound, Err: err, UserID: userID}
		}
		return GateResult{Failure: GateFailureUserUnavailable, Err: err, UserID: userID}
	}
	if !user.Active {
		return GateResult{Failure: GateFailureAccountDisabled, UserID: userID}
	}

	return GateResult{UserID: userID, User: user}
}

func equalTokens(stored, presented string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
