package flows

import "context"

// DeleteFailureKind classifies account-deletion failures for root-level mapping.
type DeleteFailureKind int

const (
	DeleteFailureNone DeleteFailureKind = iota
	DeleteFailureForbidden
	DeleteFailureUserNotFound
	DeleteFailureUserUnavailable
	DeleteFailureSessionUnavailable
)

// DeleteResult reports the outcome of an account deletion.
type DeleteResult struct {
	Failure DeleteFailureKind
	Err     error
}

// DeleteDeps captures account-deletion dependencies.
type DeleteDeps struct {
	DeleteUser     func(context.Context, string) error
	IsUserNotFound func(error) bool
	SessionStore   LogoutSessionStore
}

// RunDeleteAccount removes targetID and its session record. Only the account
// owner may delete an account.
func RunDeleteAccount(ctx context.Context, callerID, targetID string, deps DeleteDeps) DeleteResult {
	if callerID == "" || callerID != targetID {
		return DeleteResult{Failure: DeleteFailureForbidden}
	}

	if err := deps.DeleteUser(ctx, targetID); err != nil {
		if deps.IsUserNotFound(err) {
			return DeleteResult{Failure: DeleteFailureUserNotFound, Err: err}
		}
		return DeleteResult{Failure: DeleteFailureUserUnavailable, Err: err}
	}

	if err := deps.SessionStore.Delete(ctx, targetID); err != nil {
		return DeleteResult{Failure: DeleteFailureSessionUnavailable, Err: err}
	}
	return DeleteResult{}
}
