package authgate

import (
	"errors"
	"strings"

	"github.com/MrEthical07/authgate/password"
)

var (
	// ErrNotAuthenticated means the request carried no access token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidToken covers malformed, forged, revoked and superseded tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidCSRF means the CSRF token was missing or did not match.
	ErrInvalidCSRF = errors.New("invalid csrf token")
	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateUsername is returned by registration and user stores.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail is returned by registration and user stores.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrWeakPassword is matched by every *PasswordPolicyError.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrRegistrationInvalid means the username or email was empty or malformed.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled means the user exists but is not active.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrLoginRateLimited means too many failed logins in the current window.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited means too many refresh calls in the current window.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrSessionStoreUnavailable means Redis could not be reached. Requests
	// fail closed.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrUserStoreUnavailable means the user store could not be reached.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrEngineNotReady is returned by a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PasswordPolicyError lists every rule a rejected password broke.
type PasswordPolicyError struct {
	Violations []password.Violation
	Messages   []string
}

func (e *PasswordPolicyError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Messages, "; ")
}

// Unwrap lets errors.Is(err, ErrWeakPassword) match.
func (e *PasswordPolicyError) Unwrap() error { return ErrWeakPassword }

func newPasswordPolicyError(p password.Policy, violations []password.Violation) *PasswordPolicyError {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Describe(p))
	}
	return &PasswordPolicyError{Violations: violations, Messages: msgs}
}
