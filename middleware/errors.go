package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authgate"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: more specific sentinels come first.
var errorMappings = []errorMapping{
	{authgate.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{authgate.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{authgate.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{authgate.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{authgate.ErrInvalidCSRF, http.StatusForbidden, "invalid_csrf"},
	{authgate.ErrForbidden, http.StatusForbidden, "forbidden"},
	{authgate.ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{authgate.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{authgate.ErrDuplicateUsername, http.StatusBadRequest, "duplicate_username"},
	{authgate.ErrDuplicateEmail, http.StatusBadRequest, "duplicate_email"},
	{authgate.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{authgate.ErrRegistrationInvalid, http.StatusBadRequest, "invalid_request"},
	{authgate.ErrLoginRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{authgate.ErrRefreshRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{authgate.ErrSessionStoreUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{authgate.ErrUserStoreUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// StatusFor maps an engine error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	status, _ := classify(err)
	return status
}

// ErrorCode returns the stable machine-readable code for err.
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// WriteError renders err as an [ErrorResponse]. Store failures and unknown
// errors get a generic message so backend details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	resp := ErrorResponse{Error: code, Message: publicMessage(err, status)}
	var policyErr *authgate.PasswordPolicyError
	if errors.As(err, &policyErr) {
		resp.Details = policyErr.Messages
	}

	WriteJSON(w, status, resp)
}

func publicMessage(err error, status int) string {
	switch {
	case status == http.StatusInternalServerError:
		return "internal error"
	case errors.Is(err, authgate.ErrSessionStoreUnavailable):
		return authgate.ErrSessionStoreUnavailable.Error()
	case errors.Is(err, authgate.ErrUserStoreUnavailable):
		return authgate.ErrUserStoreUnavailable.Error()
	case errors.Is(err, authgate.ErrWeakPassword):
		return authgate.ErrWeakPassword.Error()
	default:
		return err.Error()
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
