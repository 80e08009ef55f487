package security

import (
	"math"
	"time"
)

// Report summarizes how hard an engine configuration is to brute force or abuse.
type Report struct {
	AlphabetSize        int
	ChallengeLength     int
	GuessSpaceBits      float64
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
	GuessProbabilityMax float64
}

type ReportInput struct {
	AlphabetSize      int
	ChallengeLength   int
	AttemptsTotal     int
	PerAttemptTimeout time.Duration
	CaseSensitive     bool
	LimitsEnabled     bool
	MaxPresentations  int
	LockEnabled       bool
	PassEnabled       bool
	PassSigningMethod string
	PassTTL           time.Duration
	RemoveOnFailure   bool
	RemoveOnTimeout   bool
}

// BuildReport derives the posture report. Case-insensitive sessions fold the
// 26 upper-case letters onto lower case, shrinking the effective alphabet.
func BuildReport(input ReportInput) Report {
	alphabet := input.AlphabetSize
	if !input.CaseSensitive && alphabet > 36 {
		alphabet -= 26
		if alphabet < 1 {
			alphabet = 1
		}
	}

	bits := 0.0
	guess := 1.0
	if alphabet > 0 && input.ChallengeLength > 0 {
		bits = float64(input.ChallengeLength) * math.Log2(float64(alphabet))
		guess = float64(input.AttemptsTotal) / math.Pow(float64(alphabet), float64(input.ChallengeLength))
		if guess > 1 {
			guess = 1
		}
	}

	return Report{
		AlphabetSize:        alphabet,
		ChallengeLength:     input.ChallengeLength,
		GuessSpaceBits:      bits,
		AttemptsTotal:       input.AttemptsTotal,
		PerAttemptTimeout:   input.PerAttemptTimeout,
		MaxSessionDuration:  time.Duration(input.AttemptsTotal) * input.PerAttemptTimeout,
		CaseSensitive:       input.CaseSensitive,
		RateLimitingActive:  input.LimitsEnabled && input.MaxPresentations > 0,
		DistributedLock:     input.LockEnabled,
		PassEnabled:         input.PassEnabled,
		PassSigningMethod:   input.PassSigningMethod,
		PassTTL:             input.PassTTL,
		RemovesOnFailure:    input.RemoveOnFailure,
		RemovesOnTimeout:    input.RemoveOnTimeout,
		GuessProbabilityMax: guess,
	}
}
