package goCaptcha

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigWarnings(t *testing.T) {
	cfg := defaultConfig()
	codes := cfg.Lint().Codes()

	if !containsCode(codes, "rate_limits_disabled") {
		t.Error("default config ships without limits and should say so")
	}
	for _, code := range []string{"challenge_short", "attempts_many", "timeout_long", "case_insensitive", "lock_ttl_short"} {
		if containsCode(codes, code) {
			t.Errorf("default config should not produce %q", code)
		}
	}
}

func TestLint_ShortChallenge(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.Length = 3
	if !containsCode(cfg.Lint().Codes(), "challenge_short") {
		t.Error("expected challenge_short warning")
	}
}

func TestLint_ManyAttempts(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.AttemptsTotal = 10
	if !containsCode(cfg.Lint().Codes(), "attempts_many") {
		t.Error("expected attempts_many warning")
	}
}

func TestLint_LongTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.PerAttemptTimeout = 10 * time.Minute
	if !containsCode(cfg.Lint().Codes(), "timeout_long") {
		t.Error("expected timeout_long warning")
	}
}

func TestLint_CaseInsensitive(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.CaseSensitive = false
	if !containsCode(cfg.Lint().Codes(), "case_insensitive") {
		t.Error("expected case_insensitive warning")
	}
}

func TestLint_AuditDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	if !containsCode(cfg.Lint().Codes(), "audit_disabled") {
		t.Error("expected audit_disabled warning")
	}
}

func TestLint_HS256Warning(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pass.Enabled = true
	cfg.Pass.SigningMethod = "hs256"
	if !containsCode(cfg.Lint().Codes(), "pass_hs256") {
		t.Error("expected pass_hs256 warning")
	}
}

func TestLint_LongPassTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pass.Enabled = true
	cfg.Pass.TTL = time.Hour
	if !containsCode(cfg.Lint().Codes(), "pass_ttl_long") {
		t.Error("expected pass_ttl_long warning")
	}
}

func TestLint_SeverityAssignment(t *testing.T) {
	cfg := defaultConfig()
	cfg.Lock.Enabled = true
	cfg.Lock.TTL = time.Second
	ws := cfg.Lint()

	found := false
	for _, w := range ws {
		if w.Code == "lock_ttl_short" {
			found = true
			if w.Severity != LintHigh {
				t.Errorf("lock_ttl_short should be HIGH, got %s", w.Severity)
			}
		}
	}
	if !found {
		t.Error("expected lock_ttl_short warning")
	}
}

func TestLint_AsError(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}

	cfg.Lock.Enabled = true
	cfg.Lock.TTL = time.Second
	if err := cfg.Lint().AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to return error for a lock shorter than the session")
	}
}

func TestLint_AtLeast(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.CaseSensitive = false
	cfg.Session.Length = 2
	ws := cfg.Lint()

	warn := ws.AtLeast(LintWarn)
	if len(warn) == 0 {
		t.Fatal("expected warn-level findings")
	}
	for _, w := range warn {
		if w.Severity < LintWarn {
			t.Errorf("AtLeast(LintWarn) returned %s severity", w.Severity)
		}
	}
	if containsCode(warn.Codes(), "case_insensitive") {
		t.Error("info-level finding leaked into AtLeast(LintWarn)")
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Session.CaseSensitive = false
	cfg.Session.ExcludedGlyphs = "0O"

	h := newHarness(t, cfg, nil)
	r := h.engine.SecurityReport()

	// 62 glyphs minus two exclusions, then upper case folded away.
	if r.AlphabetSize != 34 {
		t.Fatalf("expected effective alphabet 34, got %d", r.AlphabetSize)
	}
	if r.MaxSessionDuration != 3*cfg.Session.PerAttemptTimeout {
		t.Fatalf("unexpected max session duration %v", r.MaxSessionDuration)
	}
	if r.GuessProbabilityMax <= 0 || r.GuessProbabilityMax >= 1 {
		t.Fatalf("unexpected guess probability %v", r.GuessProbabilityMax)
	}
	if !containsCode(r.LintWarnings, "case_insensitive") {
		t.Fatalf("expected lint warnings in report, got %v", r.LintWarnings)
	}
}

// helpers

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
