package flows

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSession reports session parameters that cannot describe a runnable session.
	ErrInvalidSession = errors.New("invalid attempt session")
	// ErrInvalidTransition reports an input the current state cannot accept.
	ErrInvalidTransition = errors.New("invalid attempt transition")
)

// State is a node of the attempt state machine.
type State uint8

const (
	StatePrompting State = iota
	StateAwaitingResponse
	StateEvaluating
	StateSuccess
	StateFailure
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StatePrompting:
		return "prompting"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateEvaluating:
		return "evaluating"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Terminal reports whether no further inputs are accepted.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateTimedOut
}

// InputKind selects what happened since the last transition.
type InputKind uint8

const (
	// InputPrompt means the challenge is (re)presented for the current attempt.
	InputPrompt InputKind = iota
	// InputResponse carries one candidate answer.
	InputResponse
	// InputNoResponse means the per-attempt timeout elapsed.
	InputNoResponse
	// InputEvaluate compares the last normalized response to the answer.
	InputEvaluate
)

// Input drives one transition.
type Input struct {
	Kind     InputKind
	Response string
}

// EmissionKind tags what a transition reports to subscribers.
type EmissionKind uint8

const (
	EmitNone EmissionKind = iota
	EmitPrompted
	EmitAnswerReceived
	EmitSuccess
	EmitFailure
	EmitTimedOut
)

func (k EmissionKind) String() string {
	switch k {
	case EmitPrompted:
		return "prompted"
	case EmitAnswerReceived:
		return "answer_received"
	case EmitSuccess:
		return "success"
	case EmitFailure:
		return "failure"
	case EmitTimedOut:
		return "timed_out"
	default:
		return "none"
	}
}

// Emission is the report produced by a transition. Responses is a private copy.
type Emission struct {
	Kind      EmissionKind
	Attempt   int
	Remaining int
	Responses []string
}

// Session is the attempt accounting for one subject and one challenge.
//
// AttemptsRemaining + AttemptsTaken - 1 == AttemptsTotal holds after
// construction and after every transition.
type Session struct {
	State             State
	Answer            string
	AttemptsTotal     int
	AttemptsRemaining int
	AttemptsTaken     int
	Responses         []string
	CaseSensitive     bool
	PerAttemptTimeout time.Duration
}

// NewSession returns a session positioned at the first prompt.
func NewSession(answer string, attemptsTotal int, perAttemptTimeout time.Duration, caseSensitive bool) (Session, error) {
	if answer == "" {
		return Session{}, fmt.Errorf("%w: empty answer", ErrInvalidSession)
	}
	if attemptsTotal < 1 {
		return Session{}, fmt.Errorf("%w: attempts must be >= 1", ErrInvalidSession)
	}
	if perAttemptTimeout <= 0 {
		return Session{}, fmt.Errorf("%w: per-attempt timeout must be > 0", ErrInvalidSession)
	}
	return Session{
		State:             StatePrompting,
		Answer:            answer,
		AttemptsTotal:     attemptsTotal,
		AttemptsRemaining: attemptsTotal,
		AttemptsTaken:     1,
		CaseSensitive:     caseSensitive,
		PerAttemptTimeout: perAttemptTimeout,
	}, nil
}

// Normalize applies the session's case policy to s.
func (s Session) Normalize(v string) string {
	if s.CaseSensitive {
		return v
	}
	return strings.ToLower(v)
}

func (s Session) emission(kind EmissionKind) Emission {
	responses := make([]string, len(s.Responses))
	copy(responses, s.Responses)
	return Emission{
		Kind:      kind,
		Attempt:   s.AttemptsTaken,
		Remaining: s.AttemptsRemaining,
		Responses: responses,
	}
}

// Transition advances s by one input. The input session is never modified.
func Transition(s Session, in Input) (Session, Emission, error) {
	if s.State.Terminal() {
		return s, Emission{}, fmt.Errorf("%w: session already %s", ErrInvalidTransition, s.State)
	}

	next := s
	switch {
	case s.State == StatePrompting && in.Kind == InputPrompt:
		next.State = StateAwaitingResponse
		return next, next.emission(EmitPrompted), nil

	case s.State == StateAwaitingResponse && in.Kind == InputNoResponse:
		next.State = StateTimedOut
		return next, next.emission(EmitTimedOut), nil

	case s.State == StateAwaitingResponse && in.Kind == InputResponse:
		next.Responses = make([]string, len(s.Responses), len(s.Responses)+1)
		copy(next.Responses, s.Responses)
		next.Responses = append(next.Responses, s.Normalize(in.Response))
		next.State = StateEvaluating
		return next, next.emission(EmitAnswerReceived), nil

	case s.State == StateEvaluating && in.Kind == InputEvaluate:
		last := s.Responses[len(s.Responses)-1]
		if subtle.ConstantTimeCompare([]byte(last), []byte(s.Normalize(s.Answer))) == 1 {
			next.State = StateSuccess
			return next, next.emission(EmitSuccess), nil
		}
		if s.AttemptsRemaining > 1 {
			next.AttemptsRemaining--
			next.AttemptsTaken++
			next.State = StatePrompting
			return next, Emission{Kind: EmitNone}, nil
		}
		next.State = StateFailure
		return next, next.emission(EmitFailure), nil
	}

	return s, Emission{}, fmt.Errorf("%w: state %s cannot accept input %d", ErrInvalidTransition, s.State, in.Kind)
}
