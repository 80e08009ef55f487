package goCaptcha

import (
	"context"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

// Challenge is a rendered image and the secret answer it encodes.
type Challenge = challenge.Challenge

// Renderer rasterizes answer text. The default is the gg canvas renderer.
type Renderer = challenge.Renderer

// OutcomeKind tags an [Outcome].
type OutcomeKind uint8

const (
	// OutcomePrompted is emitted at the start of every attempt.
	OutcomePrompted OutcomeKind = iota + 1
	// OutcomeAnswerReceived is emitted for every response, before it is evaluated.
	OutcomeAnswerReceived
	// OutcomeSuccess is terminal: the last response matched.
	OutcomeSuccess
	// OutcomeFailure is terminal: every attempt was answered wrongly.
	OutcomeFailure
	// OutcomeTimedOut is terminal: an attempt received no response in time.
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePrompted:
		return "prompted"
	case OutcomeAnswerReceived:
		return "answer_received"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether k ends a session.
func (k OutcomeKind) Terminal() bool {
	return k == OutcomeSuccess || k == OutcomeFailure || k == OutcomeTimedOut
}

// Outcome is one event of a challenge session. Values handed to subscribers
// are private copies; Responses holds the normalized responses so far.
type Outcome struct {
	Kind              OutcomeKind
	SubjectID         string
	SessionID         string
	ChallengeText     string
	Attempt           int
	AttemptsRemaining int
	AttemptsTotal     int
	Responses         []string
	At                time.Time
}

func (o Outcome) clone() Outcome {
	if o.Responses != nil {
		r := make([]string, len(o.Responses))
		copy(r, o.Responses)
		o.Responses = r
	}
	return o
}

// DeliveryRequest is what a [ChallengeDelivery] receives on every delivery.
type DeliveryRequest struct {
	SubjectID         string
	SessionID         string
	Challenge         Challenge
	AttemptsRemaining int
	AttemptsTotal     int
	ShowAttemptCount  bool
}

// ResponseSource is the transport side that hears subjects. AwaitOne blocks
// until a response from a subject accepted by filter arrives (ok=true), the
// timeout elapses (ok=false, nil error), or ctx ends.
type ResponseSource interface {
	AwaitOne(ctx context.Context, filter func(subjectID string) bool, timeout time.Duration) (response string, ok bool, err error)
}

// ChallengeDelivery shows the challenge to the subject. Deliver returns an
// opaque handle that Redeliver uses to update the prompt on later attempts.
type ChallengeDelivery interface {
	Deliver(ctx context.Context, req DeliveryRequest) (handle string, err error)
	Redeliver(ctx context.Context, handle string, req DeliveryRequest) error
}

// DeliveryRetractor is optionally implemented by a [ChallengeDelivery] that
// can withdraw the prompt once the session is decided.
type DeliveryRetractor interface {
	Retract(ctx context.Context, handle string, final OutcomeKind) error
}

type RoleGranter interface {
	GrantRole(ctx context.Context, subjectID string) error
}

type RoleRevoker interface {
	RevokeRole(ctx context.Context, subjectID string) error
}

type SubjectRemover interface {
	RemoveSubject(ctx context.Context, subjectID string) error
}

// RemovalGate decides, after removal is enabled for an outcome, whether this
// particular subject is removed. An error skips removal and is reported.
type RemovalGate interface {
	AllowRemoval(ctx context.Context, subjectID string, kind OutcomeKind) (bool, error)
}

// AuthorizationFuncs adapts plain functions to the authorization capability
// interfaces. Nil fields succeed without doing anything.
type AuthorizationFuncs struct {
	Grant  func(ctx context.Context, subjectID string) error
	Revoke func(ctx context.Context, subjectID string) error
	Remove func(ctx context.Context, subjectID string) error
}

func (f AuthorizationFuncs) GrantRole(ctx context.Context, subjectID string) error {
	if f.Grant == nil {
		return nil
	}
	return f.Grant(ctx, subjectID)
}

func (f AuthorizationFuncs) RevokeRole(ctx context.Context, subjectID string) error {
	if f.Revoke == nil {
		return nil
	}
	return f.Revoke(ctx, subjectID)
}

func (f AuthorizationFuncs) RemoveSubject(ctx context.Context, subjectID string) error {
	if f.Remove == nil {
		return nil
	}
	return f.Remove(ctx, subjectID)
}

// Subscriber receives every outcome of every session, synchronously and in
// registration order. Subscribers must not block for long and must not call
// Present for the same subject.
type Subscriber func(ctx context.Context, o Outcome)

// SideEffectReport records one dispatched authorization action.
type SideEffectReport struct {
	Action  string
	Skipped bool
	Err     error
}

// Result is the resolved session: the terminal outcome, every side effect
// that ran, and the verification pass minted on success.
type Result struct {
	Outcome     Outcome
	SideEffects []SideEffectReport
	Pass        string
}

// SideEffectErrors returns the failures among r.SideEffects.
func (r Result) SideEffectErrors() []error {
	var out []error
	for _, se := range r.SideEffects {
		if se.Err != nil {
			out = append(out, se.Err)
		}
	}
	return out
}
