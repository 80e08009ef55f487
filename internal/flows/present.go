package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

var (
	// ErrGenerate marks challenge generation failures.
	ErrGenerate = errors.New("challenge generation failed")
	// ErrDeliver marks initial delivery failures.
	ErrDeliver = errors.New("challenge delivery failed")
)

// DeliveryRequest is what the transport receives on every (re)delivery.
type DeliveryRequest struct {
	SubjectID         string
	SessionID         string
	Challenge         challenge.Challenge
	AttemptsRemaining int
	AttemptsTotal     int
	ShowAttemptCount  bool
}

// PresentRequest describes one presentation.
type PresentRequest struct {
	SubjectID         string
	SessionID         string
	Options           challenge.Options
	Custom            *challenge.Challenge
	AttemptsTotal     int
	PerAttemptTimeout time.Duration
	CaseSensitive     bool
	ShowAttemptCount  bool
}

// PresentDeps captures present flow dependencies. Redeliver, Retract and Logf
// are optional.
type PresentDeps struct {
	Generate  func(challenge.Options) (challenge.Challenge, error)
	Deliver   func(ctx context.Context, req DeliveryRequest) (handle string, err error)
	Redeliver func(ctx context.Context, handle string, req DeliveryRequest) error
	Retract   func(ctx context.Context, handle string, final State) error
	Attempt   AttemptDeps
	Logf      func(format string, args ...any)
}

// PresentResult is the end state of a presentation. When Err is non-nil and
// wraps ErrGenerate or ErrDeliver, Session is the zero value: no session started.
type PresentResult struct {
	Challenge challenge.Challenge
	Session   Session
	Handle    string
	Err       error
}

// RunPresent generates (or accepts) a challenge, delivers it, and runs the
// attempt loop to a terminal state.
func RunPresent(ctx context.Context, req PresentRequest, deps PresentDeps) PresentResult {
	var (
		c   challenge.Challenge
		err error
	)
	if req.Custom != nil {
		c = req.Custom.Clone()
	} else {
		if deps.Generate == nil {
			return PresentResult{Err: fmt.Errorf("%w: %w", ErrGenerate, challenge.ErrUnsupportedRenderingBackend)}
		}
		c, err = deps.Generate(req.Options)
		if err != nil {
			return PresentResult{Err: fmt.Errorf("%w: %w", ErrGenerate, err)}
		}
	}

	s, err := NewSession(c.Text, req.AttemptsTotal, req.PerAttemptTimeout, req.CaseSensitive)
	if err != nil {
		return PresentResult{Challenge: c, Err: err}
	}

	deliveryReq := func(s Session) DeliveryRequest {
		return DeliveryRequest{
			SubjectID:         req.SubjectID,
			SessionID:         req.SessionID,
			Challenge:         c,
			AttemptsRemaining: s.AttemptsRemaining,
			AttemptsTotal:     s.AttemptsTotal,
			ShowAttemptCount:  req.ShowAttemptCount,
		}
	}

	if deps.Deliver == nil {
		return PresentResult{Challenge: c, Err: fmt.Errorf("%w: no delivery configured", ErrDeliver)}
	}
	handle, err := deps.Deliver(ctx, deliveryReq(s))
	if err != nil {
		return PresentResult{Challenge: c, Err: fmt.Errorf("%w: %w", ErrDeliver, err)}
	}

	attempt := deps.Attempt
	emit := attempt.Emit
	attempt.Emit = func(ctx context.Context, s Session, e Emission) {
		if e.Kind == EmitPrompted && e.Attempt > 1 && deps.Redeliver != nil {
			if err := deps.Redeliver(ctx, handle, deliveryReq(s)); err != nil {
				logf(deps.Logf, "goCaptcha: redelivery for subject %s failed: %v", req.SubjectID, err)
			}
		}
		if emit != nil {
			emit(ctx, s, e)
		}
	}

	final, err := RunAttempts(ctx, s, attempt)
	if err != nil {
		return PresentResult{Challenge: c, Session: final, Handle: handle, Err: err}
	}

	if deps.Retract != nil {
		if err := deps.Retract(ctx, handle, final.State); err != nil {
			logf(deps.Logf, "goCaptcha: retracting prompt for subject %s failed: %v", req.SubjectID, err)
		}
	}

	return PresentResult{Challenge: c, Session: final, Handle: handle}
}

func logf(fn func(string, ...any), format string, args ...any) {
	if fn != nil {
		fn(format, args...)
	}
}
