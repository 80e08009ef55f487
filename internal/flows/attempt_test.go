package flows

import (
	"errors"
	"testing"
	"time"
)

func mustSession(t *testing.T, answer string, total int, caseSensitive bool) Session {
	t.Helper()
	s, err := NewSession(answer, total, time.Second, caseSensitive)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func step(t *testing.T, s Session, in Input) (Session, Emission) {
	t.Helper()
	next, em, err := Transition(s, in)
	if err != nil {
		t.Fatalf("Transition(%s, %d) failed: %v", s.State, in.Kind, err)
	}
	return next, em
}

func checkAccounting(t *testing.T, s Session) {
	t.Helper()
	if s.AttemptsRemaining+s.AttemptsTaken-1 != s.AttemptsTotal {
		t.Fatalf("accounting broken: remaining=%d taken=%d total=%d", s.AttemptsRemaining, s.AttemptsTaken, s.AttemptsTotal)
	}
}

func TestNewSessionValidation(t *testing.T) {
	cases := []struct {
		answer  string
		total   int
		timeout time.Duration
	}{
		{"", 1, time.Second},
		{"abc", 0, time.Second},
		{"abc", -2, time.Second},
		{"abc", 1, 0},
	}
	for _, tc := range cases {
		if _, err := NewSession(tc.answer, tc.total, tc.timeout, true); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected ErrInvalidSession for %+v, got %v", tc, err)
		}
	}

	s := mustSession(t, "abc", 3, true)
	if s.State != StatePrompting || s.AttemptsTaken != 1 || s.AttemptsRemaining != 3 {
		t.Fatalf("unexpected initial session: %+v", s)
	}
	checkAccounting(t, s)
}

func TestTransitionTwoWrongThenCorrect(t *testing.T) {
	s := mustSession(t, "Ab3dE9", 3, true)
	var kinds []EmissionKind

	for _, answer := range []string{"wrong1", "wrong2", "Ab3dE9"} {
		var em Emission
		s, em = step(t, s, Input{Kind: InputPrompt})
		kinds = append(kinds, em.Kind)
		s, em = step(t, s, Input{Kind: InputResponse, Response: answer})
		kinds = append(kinds, em.Kind)
		s, em = step(t, s, Input{Kind: InputEvaluate})
		if em.Kind != EmitNone {
			kinds = append(kinds, em.Kind)
		}
		checkAccounting(t, s)
	}

	if s.State != StateSuccess {
		t.Fatalf("expected success, got %s", s.State)
	}
	if s.AttemptsTaken != 3 || len(s.Responses) != 3 {
		t.Fatalf("expected 3 attempts and 3 responses, got %d and %d", s.AttemptsTaken, len(s.Responses))
	}
	want := []EmissionKind{EmitPrompted, EmitAnswerReceived, EmitPrompted, EmitAnswerReceived, EmitPrompted, EmitAnswerReceived, EmitSuccess}
	if len(kinds) != len(want) {
		t.Fatalf("emissions = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("emission %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestTransitionExhaustionFails(t *testing.T) {
	s := mustSession(t, "abc", 2, true)
	var last Emission
	for i := 0; i < 2; i++ {
		s, _ = step(t, s, Input{Kind: InputPrompt})
		s, _ = step(t, s, Input{Kind: InputResponse, Response: "nope"})
		s, last = step(t, s, Input{Kind: InputEvaluate})
	}
	if s.State != StateFailure || last.Kind != EmitFailure {
		t.Fatalf("expected failure, got %s / %s", s.State, last.Kind)
	}
	if last.Attempt != 2 {
		t.Fatalf("expected failure on attempt 2, got %d", last.Attempt)
	}
	checkAccounting(t, s)
}

func TestTransitionSingleAttemptNeverRetries(t *testing.T) {
	s := mustSession(t, "abc", 1, true)
	s, _ = step(t, s, Input{Kind: InputPrompt})
	s, _ = step(t, s, Input{Kind: InputResponse, Response: "abd"})
	s, em := step(t, s, Input{Kind: InputEvaluate})
	if s.State != StateFailure || em.Kind != EmitFailure {
		t.Fatalf("expected immediate failure, got %s", s.State)
	}
}

func TestTransitionTimeoutIsTerminal(t *testing.T) {
	s := mustSession(t, "abc", 5, true)
	s, _ = step(t, s, Input{Kind: InputPrompt})
	s, em := step(t, s, Input{Kind: InputNoResponse})
	if s.State != StateTimedOut || em.Kind != EmitTimedOut {
		t.Fatalf("expected timed out, got %s", s.State)
	}
	if em.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", em.Attempt)
	}
	if _, _, err := Transition(s, Input{Kind: InputPrompt}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after terminal state, got %v", err)
	}
}

func TestTransitionCaseInsensitiveNormalizesHistory(t *testing.T) {
	s := mustSession(t, "AbC", 1, false)
	s, _ = step(t, s, Input{Kind: InputPrompt})
	s, em := step(t, s, Input{Kind: InputResponse, Response: "aBc"})
	if em.Responses[0] != "abc" {
		t.Fatalf("expected normalized history, got %q", em.Responses[0])
	}
	s, em = step(t, s, Input{Kind: InputEvaluate})
	if em.Kind != EmitSuccess {
		t.Fatalf("expected success ignoring case, got %s", em.Kind)
	}
}

func TestTransitionCaseSensitiveRejectsCaseMismatch(t *testing.T) {
	s := mustSession(t, "AbC", 1, true)
	s, _ = step(t, s, Input{Kind: InputPrompt})
	s, _ = step(t, s, Input{Kind: InputResponse, Response: "abc"})
	_, em := step(t, s, Input{Kind: InputEvaluate})
	if em.Kind != EmitFailure {
		t.Fatalf("expected failure on case mismatch, got %s", em.Kind)
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	s := mustSession(t, "abc", 2, true)
	s, _ = step(t, s, Input{Kind: InputPrompt})
	s, _ = step(t, s, Input{Kind: InputResponse, Response: "x"})
	before := s
	beforeLen := len(s.Responses)

	next, em := step(t, s, Input{Kind: InputEvaluate})
	next, _ = step(t, next, Input{Kind: InputPrompt})
	next, _ = step(t, next, Input{Kind: InputResponse, Response: "y"})

	if len(before.Responses) != beforeLen || before.State != StateEvaluating {
		t.Fatalf("earlier session value changed: %+v", before)
	}
	em.Responses = append(em.Responses, "tamper")
	if len(next.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %v", next.Responses)
	}
}

func TestTransitionRejectsOutOfOrderInputs(t *testing.T) {
	s := mustSession(t, "abc", 1, true)
	bad := []Input{
		{Kind: InputResponse, Response: "abc"},
		{Kind: InputNoResponse},
		{Kind: InputEvaluate},
	}
	for _, in := range bad {
		if _, _, err := Transition(s, in); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition for input %d while prompting, got %v", in.Kind, err)
		}
	}
}

func TestPlanSideEffects(t *testing.T) {
	all := OutcomeFlags{GrantOnSuccess: true, RevokeOnSuccess: true, RemoveOnFailure: true, RemoveOnTimeout: true}
	cases := []struct {
		kind  EmissionKind
		flags OutcomeFlags
		want  []Action
	}{
		{EmitSuccess, all, []Action{ActionGrant, ActionRevoke}},
		{EmitSuccess, OutcomeFlags{GrantOnSuccess: true}, []Action{ActionGrant}},
		{EmitFailure, all, []Action{ActionRemove}},
		{EmitFailure, OutcomeFlags{RemoveOnTimeout: true}, nil},
		{EmitTimedOut, all, []Action{ActionRemove}},
		{EmitTimedOut, OutcomeFlags{RemoveOnFailure: true}, nil},
		{EmitPrompted, all, nil},
		{EmitAnswerReceived, all, nil},
	}
	for _, tc := range cases {
		got := PlanSideEffects(tc.kind, tc.flags)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.kind, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v want %v", tc.kind, got, tc.want)
			}
		}
	}
}
