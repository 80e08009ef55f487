package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAwait marks failures raised by the response source itself.
var ErrAwait = errors.New("await response failed")

// AttemptDeps captures attempt loop dependencies.
type AttemptDeps struct {
	// Await blocks until one matching response arrives (ok=true), the timeout
	// elapses (ok=false), or ctx ends.
	Await func(ctx context.Context, timeout time.Duration) (response string, ok bool, err error)
	// Emit is called synchronously after every transition that reports something.
	Emit func(ctx context.Context, s Session, e Emission)
}

// RunAttempts drives s until it reaches a terminal state.
//
// If ctx ends first, RunAttempts returns ctx.Err() and emits nothing further.
// The per-attempt timeout restarts for every await.
func RunAttempts(ctx context.Context, s Session, deps AttemptDeps) (Session, error) {
	if deps.Await == nil {
		return s, fmt.Errorf("%w: no await dependency", ErrAwait)
	}

	for !s.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		var in Input
		switch s.State {
		case StatePrompting:
			in = Input{Kind: InputPrompt}
		case StateEvaluating:
			in = Input{Kind: InputEvaluate}
		case StateAwaitingResponse:
			resp, ok, err := awaitAttempt(ctx, s.PerAttemptTimeout, deps.Await)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s, ctxErr
			}
			if err != nil {
				return s, err
			}
			if ok {
				in = Input{Kind: InputResponse, Response: resp}
			} else {
				in = Input{Kind: InputNoResponse}
			}
		}

		next, em, err := Transition(s, in)
		if err != nil {
			return s, err
		}
		s = next

		if em.Kind == EmitNone || deps.Emit == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}
		deps.Emit(ctx, s, em)
	}

	return s, nil
}

func awaitAttempt(
	ctx context.Context,
	timeout time.Duration,
	await func(context.Context, time.Duration) (string, bool, error),
) (string, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, ok, err := await(attemptCtx, timeout)
	if err != nil {
		// Sources that surface the attempt deadline as an error still mean "no response".
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %w", ErrAwait, err)
	}
	return resp, ok, nil
}
