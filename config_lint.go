package goCaptcha

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a lint warning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "info"
	}
}

// LintWarning flags a valid but questionable configuration choice.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast returns the warnings with severity >= min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.AtLeast(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Code+": "+w.Message)
	}
	return fmt.Errorf("config lint (%s and above): %s", min, strings.Join(msgs, "; "))
}

// Lint reports configuration choices that pass Validate but weaken the
// challenge or its surroundings.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	s := c.Session
	if s.Length < 4 {
		add("challenge_short", LintWarn, "challenge length %d is easy to guess", s.Length)
	}
	if s.AttemptsTotal > 5 {
		add("attempts_many", LintWarn, "%d attempts per session widen the guess budget", s.AttemptsTotal)
	}
	if s.PerAttemptTimeout > 5*time.Minute {
		add("timeout_long", LintInfo, "per-attempt timeout %s keeps sessions open a long time", s.PerAttemptTimeout)
	}
	if !s.CaseSensitive {
		add("case_insensitive", LintInfo, "case-insensitive comparison shrinks the alphabet to 36 glyphs")
	}
	if !c.Limits.Enabled {
		add("rate_limits_disabled", LintWarn, "presentation limits are disabled")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are disabled")
	}
	if c.Pass.Enabled {
		if c.Pass.SigningMethod == "hs256" {
			add("pass_hs256", LintInfo, "hs256 passes require sharing the signing key with verifiers")
		}
		if c.Pass.TTL > 15*time.Minute {
			add("pass_ttl_long", LintWarn, "pass TTL %s outlives typical verification windows", c.Pass.TTL)
		}
	}
	if c.Lock.Enabled && c.Lock.TTL > 0 && c.Lock.TTL < s.maxDuration() {
		add("lock_ttl_short", LintHigh, "lock TTL %s is shorter than the worst-case session %s", c.Lock.TTL, s.maxDuration())
	}
	return ws
}
