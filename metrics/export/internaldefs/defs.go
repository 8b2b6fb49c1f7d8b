package internaldefs

import (
	passAuth "github.com/MrEthical07/passAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   passAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   passAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "passauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: passAuth.MetricSignUpSuccess, Name: "passauth_signup_success_total", Help: "Accounts created."},
	{ID: passAuth.MetricSignUpDuplicate, Name: "passauth_signup_duplicate_total", Help: "Sign-ups rejected because the name was taken."},
	{ID: passAuth.MetricSignUpFailure, Name: "passauth_signup_failure_total", Help: "Sign-ups rejected for any other reason."},
	{ID: passAuth.MetricSignInSuccess, Name: "passauth_signin_success_total", Help: "Successful sign-ins."},
	{ID: passAuth.MetricSignInFailure, Name: "passauth_signin_failure_total", Help: "Failed sign-ins."},
	{ID: passAuth.MetricSignInRateLimited, Name: "passauth_signin_rate_limited_total", Help: "Sign-ins refused by the throttle."},
	{ID: passAuth.MetricSignOut, Name: "passauth_signout_total", Help: "Sign-outs."},
	{ID: passAuth.MetricPasswordChangeSuccess, Name: "passauth_password_change_success_total", Help: "Successful password changes."},
	{ID: passAuth.MetricPasswordChangeFailure, Name: "passauth_password_change_failure_total", Help: "Failed password changes."},
	{ID: passAuth.MetricResetTokenIssued, Name: "passauth_reset_token_issued_total", Help: "Reset tokens issued."},
	{ID: passAuth.MetricResetTokenRejected, Name: "passauth_reset_token_rejected_total", Help: "Reset token requests rejected."},
	{ID: passAuth.MetricPasswordResetSuccess, Name: "passauth_password_reset_success_total", Help: "Reset tokens redeemed."},
	{ID: passAuth.MetricPasswordResetExpired, Name: "passauth_password_reset_expired_total", Help: "Reset attempts with an expired token."},
	{ID: passAuth.MetricPasswordResetFailure, Name: "passauth_password_reset_failure_total", Help: "Reset attempts rejected for any other reason."},
	{ID: passAuth.MetricSessionExpired, Name: "passauth_session_expired_total", Help: "Session snapshots found expired."},
	{ID: passAuth.MetricSessionRefreshed, Name: "passauth_session_refreshed_total", Help: "Session expiries extended."},
	{ID: passAuth.MetricRepositoryError, Name: "passauth_repository_error_total", Help: "Repository calls that failed."},
}

// HistogramDefs lists every latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: passAuth.MetricVerifyLatency, Name: "passauth_verify_latency_seconds", Help: "Password verification latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets.
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
