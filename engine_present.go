package goCaptcha

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/internal/flows"
	"github.com/MrEthical07/goCaptcha/internal/limiters"
	"github.com/MrEthical07/goCaptcha/internal/stores"
	"github.com/google/uuid"
)

// Present runs one session for subjectID with the engine's default session
// configuration and blocks until it resolves.
func (e *Engine) Present(ctx context.Context, subjectID string) (Result, error) {
	if e == nil {
		return Result{}, ErrEngineNotReady
	}
	return e.present(ctx, subjectID, e.config.Session, nil)
}

// PresentWithConfig is Present with a per-call session configuration.
func (e *Engine) PresentWithConfig(ctx context.Context, subjectID string, cfg SessionConfig) (Result, error) {
	return e.present(ctx, subjectID, cfg, nil)
}

// PresentChallenge runs a session over a caller-built challenge instead of
// generating one. Length and ExcludedGlyphs of cfg are not consulted for
// sampling.
func (e *Engine) PresentChallenge(ctx context.Context, subjectID string, c Challenge, cfg SessionConfig) (Result, error) {
	if c.Text == "" {
		return Result{}, configErr("Challenge.Text", "must not be empty")
	}
	if len(c.Image) == 0 {
		return Result{}, configErr("Challenge.Image", "must not be empty")
	}
	c = c.Clone()
	return e.present(ctx, subjectID, cfg, &c)
}

func (e *Engine) present(ctx context.Context, subjectID string, cfg SessionConfig, custom *Challenge) (Result, error) {
	if e == nil || !e.flow.Initialized() || e.closed.Load() {
		return Result{}, ErrEngineNotReady
	}
	if strings.TrimSpace(subjectID) == "" {
		return Result{}, ErrInvalidSubject
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if err := e.checkBindings(cfg); err != nil {
		return Result{}, err
	}

	sessionID := uuid.NewString()
	sessCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if !e.register(subjectID, sessionID, cancel) {
		e.metricInc(MetricSessionConflict)
		e.emitAudit(ctx, auditEventSessionConflicted, false, subjectID, sessionID, 0, ErrSessionActive, nil)
		return Result{}, ErrSessionActive
	}
	defer e.unregister(subjectID, sessionID)

	if err := e.acquireLock(ctx, cfg, subjectID, sessionID); err != nil {
		return Result{}, err
	}
	defer e.releaseLock(ctx, subjectID, sessionID)

	if err := e.limiter.Enforce(ctx, subjectID, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrPresentRateLimited) {
			e.metricInc(MetricRateLimited)
			e.emitAudit(ctx, auditEventRateLimited, false, subjectID, sessionID, 0, ErrPresentRateLimited, nil)
			return Result{}, ErrPresentRateLimited
		}
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var (
		terminal   Outcome
		promptedAt time.Time
	)
	attempt := flows.AttemptDeps{
		Await: func(ctx context.Context, timeout time.Duration) (string, bool, error) {
			return e.source.AwaitOne(ctx, func(id string) bool { return id == subjectID }, timeout)
		},
		Emit: func(ctx context.Context, s flows.Session, em flows.Emission) {
			o := e.outcomeFrom(subjectID, sessionID, s, em)
			if o.Kind == OutcomePrompted && em.Attempt == 1 {
				promptedAt = o.At
			}
			if o.Kind.Terminal() {
				terminal = o
			}
			e.publish(ctx, o)
		},
	}

	res := e.flow.Present(sessCtx, flows.PresentRequest{
		SubjectID:         subjectID,
		SessionID:         sessionID,
		Options:           challenge.Options{Length: cfg.Length, Excluded: cfg.ExcludedGlyphs},
		Custom:            custom,
		AttemptsTotal:     cfg.AttemptsTotal,
		PerAttemptTimeout: cfg.PerAttemptTimeout,
		CaseSensitive:     cfg.CaseSensitive,
		ShowAttemptCount:  cfg.ShowAttemptCount,
	}, attempt)

	if res.Err != nil {
		err := e.presentError(sessCtx, res.Err)
		e.emitAudit(ctx, e.failureEvent(err), false, subjectID, sessionID, res.Session.AttemptsTaken, err, nil)
		return Result{}, err
	}

	e.emitAudit(ctx, auditEventPresented, true, subjectID, sessionID, terminal.Attempt, nil, func() map[string]string {
		return map[string]string{"outcome": terminal.Kind.String()}
	})

	result := Result{Outcome: terminal.clone()}
	result.SideEffects = e.dispatch(ctx, cfg, terminal)

	if terminal.Kind == OutcomeSuccess {
		if !promptedAt.IsZero() && e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricSolveLatency, terminal.At.Sub(promptedAt))
		}
		result.Pass = e.issuePass(terminal)
		if e.config.Limits.ResetOnSuccess {
			if err := e.limiter.Reset(ctx, subjectID); err != nil {
				log.Printf("goCaptcha: resetting presentation limit for subject %s failed: %v", subjectID, err)
			}
		}
	}

	return result, nil
}

func (e *Engine) outcomeFrom(subjectID, sessionID string, s flows.Session, em flows.Emission) Outcome {
	return Outcome{
		Kind:              outcomeKind(em.Kind),
		SubjectID:         subjectID,
		SessionID:         sessionID,
		ChallengeText:     s.Answer,
		Attempt:           em.Attempt,
		AttemptsRemaining: em.Remaining,
		AttemptsTotal:     s.AttemptsTotal,
		Responses:         em.Responses,
		At:                e.now(),
	}
}

func (e *Engine) publish(ctx context.Context, o Outcome) {
	switch o.Kind {
	case OutcomePrompted:
		e.metricInc(MetricPrompted)
	case OutcomeAnswerReceived:
		e.metricInc(MetricAnswerReceived)
	case OutcomeSuccess:
		e.metricInc(MetricSuccess)
	case OutcomeFailure:
		e.metricInc(MetricFailure)
	case OutcomeTimedOut:
		e.metricInc(MetricTimedOut)
	}
	e.auditOutcome(ctx, o)
	e.notify(ctx, o)
}

// presentError maps a flow failure onto the public error set.
func (e *Engine) presentError(sessCtx context.Context, err error) error {
	switch {
	case sessCtx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		e.metricInc(MetricCanceled)
		return fmt.Errorf("%w: %w", ErrSessionCanceled, err)
	case errors.Is(err, flows.ErrGenerate):
		if errors.Is(err, challenge.ErrInvalidInput) {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		e.metricInc(MetricRenderFailure)
		return fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
	case errors.Is(err, flows.ErrDeliver):
		e.metricInc(MetricDeliveryFailure)
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	case errors.Is(err, flows.ErrAwait):
		e.metricInc(MetricResponseSourceFailure)
		return fmt.Errorf("%w: %v", ErrResponseSourceFailure, err)
	case errors.Is(err, flows.ErrInvalidSession):
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	default:
		return err
	}
}

func (e *Engine) failureEvent(err error) string {
	if errors.Is(err, ErrSessionCanceled) {
		return auditEventCanceled
	}
	return auditEventPresentFailed
}

func (e *Engine) acquireLock(ctx context.Context, cfg SessionConfig, subjectID, sessionID string) error {
	if e.lock == nil {
		return nil
	}
	ttl := e.config.Lock.TTL
	if ttl <= 0 {
		ttl = lockTTL(cfg)
	}
	err := e.lock.AcquireFor(ctx, subjectID, sessionID, ttl)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrLockHeld):
		e.metricInc(MetricSessionConflict)
		e.emitAudit(ctx, auditEventSessionConflicted, false, subjectID, sessionID, 0, ErrSessionActive, func() map[string]string {
			md := map[string]string{"scope": "distributed"}
			// The holder may have released or expired in between; omit it then.
			if holder, err := e.lock.Holder(ctx, subjectID); err == nil && holder != "" {
				md["holder_session"] = holder
			}
			return md
		})
		return ErrSessionActive
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}

func (e *Engine) releaseLock(ctx context.Context, subjectID, sessionID string) {
	if e.lock == nil {
		return
	}
	if err := e.lock.Release(context.WithoutCancel(ctx), subjectID, sessionID); err != nil {
		log.Printf("goCaptcha: releasing session lock for subject %s failed: %v", subjectID, err)
	}
}

// lockTTL covers the worst-case session plus delivery slack.
func lockTTL(cfg SessionConfig) time.Duration {
	return cfg.maxDuration() + 30*time.Second
}

func (e *Engine) issuePass(o Outcome) string {
	if !e.passes.CanSign() {
		return ""
	}
	token, err := e.passes.Issue(o.SubjectID, o.SessionID, o.Attempt)
	if err != nil {
		log.Printf("goCaptcha: issuing pass for subject %s failed: %v", o.SubjectID, err)
		return ""
	}
	e.metricInc(MetricPassIssued)
	return token
}

func outcomeKind(k flows.EmissionKind) OutcomeKind {
	switch k {
	case flows.EmitPrompted:
		return OutcomePrompted
	case flows.EmitAnswerReceived:
		return OutcomeAnswerReceived
	case flows.EmitSuccess:
		return OutcomeSuccess
	case flows.EmitFailure:
		return OutcomeFailure
	case flows.EmitTimedOut:
		return OutcomeTimedOut
	default:
		return 0
	}
}

func emissionKind(k OutcomeKind) flows.EmissionKind {
	switch k {
	case OutcomePrompted:
		return flows.EmitPrompted
	case OutcomeAnswerReceived:
		return flows.EmitAnswerReceived
	case OutcomeSuccess:
		return flows.EmitSuccess
	case OutcomeFailure:
		return flows.EmitFailure
	case OutcomeTimedOut:
		return flows.EmitTimedOut
	default:
		return flows.EmitNone
	}
}

func terminalKind(s flows.State) OutcomeKind {
	switch s {
	case flows.StateSuccess:
		return OutcomeSuccess
	case flows.StateFailure:
		return OutcomeFailure
	case flows.StateTimedOut:
		return OutcomeTimedOut
	default:
		return 0
	}
}
