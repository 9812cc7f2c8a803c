package authgate

import (
	"context"
	"time"
)

// User is a stored account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// UserStore is the persistence boundary for accounts. Implementations must
// enforce username and email uniqueness atomically inside Create, returning
// [ErrDuplicateUsername] or [ErrDuplicateEmail], and must return
// [ErrUserNotFound] for missing users.
type UserStore interface {
	// Create stores u, assigning ID and CreatedAt when they are empty, and
	// returns the stored copy.
	Create(ctx context.Context, u User) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// Identity is what the authentication gate hands to downstream handlers.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// Credentials are the per-request values presented to the gate. The HTTP
// layer extracts them from cookies and headers.
type Credentials struct {
	AccessToken string
	CSRFToken   string
}

// RegisterRequest is the input to [Engine.Register].
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	User         User
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

// RefreshResult is returned by a successful [Engine.Refresh]. The refresh
// token is not rotated, so it is not part of the result.
type RefreshResult struct {
	UserID      string
	AccessToken string
	CSRFToken   string
}
