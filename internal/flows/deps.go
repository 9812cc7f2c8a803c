package flows

import "time"

// UserRecord is the flow-local view of a stored user.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Gate     GateDeps
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Register RegisterDeps
	Delete   DeleteDeps
}
