package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/credguard"
)

type CounterDef struct {
	ID   credguard.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   credguard.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "credguard_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: credguard.MetricRegisterSuccess, Name: "credguard_register_success_total", Help: "Users created by register."},
	{ID: credguard.MetricRegisterDuplicate, Name: "credguard_register_duplicate_total", Help: "Register attempts for an existing username."},
	{ID: credguard.MetricRegisterRateLimited, Name: "credguard_register_rate_limited_total", Help: "Register attempts hard-denied past the threshold."},
	{ID: credguard.MetricRegisterChallengeIssued, Name: "credguard_register_challenge_issued_total", Help: "Registration codes issued."},
	{ID: credguard.MetricRegisterChallengeRequired, Name: "credguard_register_challenge_required_total", Help: "Register attempts refused for a missing code."},
	{ID: credguard.MetricRegisterChallengeFailure, Name: "credguard_register_challenge_failure_total", Help: "Register attempts with a wrong code."},
	{ID: credguard.MetricLoginSuccess, Name: "credguard_login_success_total", Help: "Successful logins."},
	{ID: credguard.MetricLoginFailure, Name: "credguard_login_failure_total", Help: "Wrong-password logins below the lockout threshold."},
	{ID: credguard.MetricLoginUserNotFound, Name: "credguard_login_user_not_found_total", Help: "Logins for an unknown username."},
	{ID: credguard.MetricLoginLockedOut, Name: "credguard_login_locked_out_total", Help: "Logins denied by an IP or password lock."},
	{ID: credguard.MetricForgotPasswordRequest, Name: "credguard_forgot_password_request_total", Help: "Reset codes issued."},
	{ID: credguard.MetricForgotPasswordPending, Name: "credguard_forgot_password_pending_total", Help: "Forgot-password requests refused while a code is live."},
	{ID: credguard.MetricForgotPasswordUserNotFound, Name: "credguard_forgot_password_user_not_found_total", Help: "Forgot-password requests for an unknown username."},
	{ID: credguard.MetricResetPasswordSuccess, Name: "credguard_reset_password_success_total", Help: "Passwords reset."},
	{ID: credguard.MetricResetPasswordFailure, Name: "credguard_reset_password_failure_total", Help: "Reset attempts with a wrong code."},
	{ID: credguard.MetricResetPasswordLockedOut, Name: "credguard_reset_password_locked_out_total", Help: "Reset attempts denied by the IP lock."},
	{ID: credguard.MetricResetPasswordUserNotFound, Name: "credguard_reset_password_user_not_found_total", Help: "Reset attempts for an unknown username."},
	{ID: credguard.MetricInfrastructureError, Name: "credguard_infrastructure_error_total", Help: "Flows failed by the counter store or user directory."},
}

var HistogramDefs = []HistogramDef{
	{ID: credguard.MetricFlowLatency, Name: "credguard_flow_latency_seconds", Help: "Engine flow latency."},
}

// HistogramBoundsSeconds are the finite upper bounds in seconds.
func HistogramBoundsSeconds() []float64 {
	out := make([]float64, len(credguard.HistogramBounds))
	for i, b := range credguard.HistogramBounds {
		out[i] = b.Seconds()
	}
	return out
}

// HistogramBoundSuffix names each bucket, "+Inf" last, in a form usable
// inside an instrument name.
func HistogramBoundSuffix() []string {
	out := make([]string, 0, credguard.HistogramBucketCount)
	for _, b := range HistogramBoundsSeconds() {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

func NormalizeBuckets(raw []uint64) [credguard.HistogramBucketCount]uint64 {
	var out [credguard.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [credguard.HistogramBucketCount]uint64) [credguard.HistogramBucketCount]uint64 {
	var out [credguard.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
