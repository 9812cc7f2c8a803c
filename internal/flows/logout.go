package flows

import "context"

type LogoutSessionStore interface {
	Delete(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	SessionStore LogoutSessionStore
}

// RunLogout deletes the user's session record. It is idempotent.
func RunLogout(ctx context.Context, userID string, deps LogoutDeps) error {
	return deps.SessionStore.Delete(ctx, userID)
}
