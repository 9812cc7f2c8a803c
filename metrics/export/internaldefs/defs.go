package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef names one counter for exporters.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram for exporters.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter with its public name.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh operations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authgate.MetricRefreshRateLimited, Name: "authgate_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logout operations."},
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Successful registrations."},
	{ID: authgate.MetricRegisterDuplicate, Name: "authgate_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authgate.MetricRegisterWeakPassword, Name: "authgate_register_weak_password_total", Help: "Registrations rejected by the password policy."},
	{ID: authgate.MetricAccountDeleted, Name: "authgate_account_deleted_total", Help: "Account deletions."},
	{ID: authgate.MetricGateSuccess, Name: "authgate_gate_success_total", Help: "Requests admitted by the authentication gate."},
	{ID: authgate.MetricGateUnauthenticated, Name: "authgate_gate_unauthenticated_total", Help: "Requests without an access token."},
	{ID: authgate.MetricGateInvalidToken, Name: "authgate_gate_invalid_token_total", Help: "Requests with an invalid, revoked or superseded token."},
	{ID: authgate.MetricGateExpired, Name: "authgate_gate_expired_total", Help: "Requests with an expired access token."},
	{ID: authgate.MetricGateCSRFRejected, Name: "authgate_gate_csrf_rejected_total", Help: "Requests rejected by the CSRF check."},
	{ID: authgate.MetricGateForbidden, Name: "authgate_gate_forbidden_total", Help: "Requests rejected by the role gate."},
	{ID: authgate.MetricGateUserNotFound, Name: "authgate_gate_user_not_found_total", Help: "Requests whose session belongs to a deleted user."},
	{ID: authgate.MetricGateAccountDisabled, Name: "authgate_gate_account_disabled_total", Help: "Requests from a deactivated account."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created session records."},
	{ID: authgate.MetricSessionStoreError, Name: "authgate_session_store_error_total", Help: "Session store failures."},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricGateLatency, Name: "authgate_gate_latency_seconds", Help: "Authentication gate latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix renders HistogramBounds for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
