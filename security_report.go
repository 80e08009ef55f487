package goCaptcha

import (
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/internal/security"
)

// SecurityReport summarizes how resistant the engine's default session
// configuration is to guessing and abuse.
type SecurityReport struct {
	AlphabetSize        int
	ChallengeLength     int
	GuessSpaceBits      float64
	GuessProbabilityMax float64
	AttemptsTotal       int
	PerAttemptTimeout   time.Duration
	MaxSessionDuration  time.Duration
	CaseSensitive       bool
	RateLimitingActive  bool
	DistributedLock     bool
	PassEnabled         bool
	PassSigningMethod   string
	PassTTL             time.Duration
	RemovesOnFailure    bool
	RemovesOnTimeout    bool
	LintWarnings        []string
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	s := e.config.Session
	alphabetSize := 0
	if a, err := challenge.NewAlphabet(s.ExcludedGlyphs); err == nil {
		alphabetSize = len(a.Characters)
	}

	r := security.BuildReport(security.ReportInput{
		AlphabetSize:      alphabetSize,
		ChallengeLength:   s.Length,
		AttemptsTotal:     s.AttemptsTotal,
		PerAttemptTimeout: s.PerAttemptTimeout,
		CaseSensitive:     s.CaseSensitive,
		LimitsEnabled:     e.config.Limits.Enabled,
		MaxPresentations:  e.config.Limits.MaxPresentations,
		LockEnabled:       e.config.Lock.Enabled,
		PassEnabled:       e.config.Pass.Enabled,
		PassSigningMethod: e.config.Pass.SigningMethod,
		PassTTL:           e.config.Pass.TTL,
		RemoveOnFailure:   s.RemoveOnFailure,
		RemoveOnTimeout:   s.RemoveOnTimeout,
	})

	cfg := e.config
	return SecurityReport{
		AlphabetSize:        r.AlphabetSize,
		ChallengeLength:     r.ChallengeLength,
		GuessSpaceBits:      r.GuessSpaceBits,
		GuessProbabilityMax: r.GuessProbabilityMax,
		AttemptsTotal:       r.AttemptsTotal,
		PerAttemptTimeout:   r.PerAttemptTimeout,
		MaxSessionDuration:  r.MaxSessionDuration,
		CaseSensitive:       r.CaseSensitive,
		RateLimitingActive:  r.RateLimitingActive,
		DistributedLock:     r.DistributedLock,
		PassEnabled:         r.PassEnabled,
		PassSigningMethod:   r.PassSigningMethod,
		PassTTL:             r.PassTTL,
		RemovesOnFailure:    r.RemovesOnFailure,
		RemovesOnTimeout:    r.RemovesOnTimeout,
		LintWarnings:        cfg.Lint().Codes(),
	}
}
