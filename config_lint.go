package passAuth

import (
	"fmt"
	"time"
)

// LintSeverity grades a [LintWarning].
type LintSeverity int

const (
	// LintInfo marks a setting worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that weakens the deployment.
	LintWarn
)

func (s LintSeverity) String() string {
	if s == LintWarn {
		return "WARN"
	}
	return "INFO"
}

// LintWarning is a valid but questionable configuration choice.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AsError returns the warnings at or above minSeverity as one error.
func (r LintResult) AsError(minSeverity LintSeverity) error {
	var n int
	var first LintWarning
	for _, w := range r {
		if w.Severity < minSeverity {
			continue
		}
		if n == 0 {
			first = w
		}
		n++
	}
	if n == 0 {
		return nil
	}
	if n == 1 {
		return fmt.Errorf("config lint: %s: %s", first.Code, first.Message)
	}
	return fmt.Errorf("config lint: %s: %s (and %d more)", first.Code, first.Message, n-1)
}

// Lint reports settings that pass [Config.Validate] but are likely mistakes.
// It does not replace Validate.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Password.Algorithm == AlgorithmBcrypt && c.Password.Cost < 10 {
		add("hash_cost_low", LintInfo, fmt.Sprintf("bcrypt cost %d is below 10", c.Password.Cost))
	}
	if c.Token.ByteLength < 16 {
		add("token_short", LintWarn, fmt.Sprintf("reset tokens carry only %d random bytes", c.Token.ByteLength))
	}
	if c.ResetExpiry > 7*24*time.Hour {
		add("reset_expiry_long", LintWarn, "reset tokens stay valid for more than a week")
	}
	if c.SessionExpiry > 24*time.Hour {
		add("session_expiry_long", LintWarn, "idle sessions stay valid for more than a day")
	}
	if c.SessionExpiry > c.ResetExpiry {
		add("session_longer_than_reset", LintInfo, "SessionExpiry exceeds ResetExpiry")
	}
	if !c.SignInThrottle.Enabled {
		add("signin_throttle_disabled", LintInfo, "failed sign-ins are not rate limited")
	} else if !c.SignInThrottle.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "sign-in throttle only counts per name")
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drops_events", LintInfo, "audit events are dropped when the buffer is full")
	}

	return out
}
