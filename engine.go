package goCaptcha

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
	internalaudit "github.com/MrEthical07/goCaptcha/internal/audit"
	"github.com/MrEthical07/goCaptcha/internal/flows"
	"github.com/MrEthical07/goCaptcha/internal/limiters"
	"github.com/MrEthical07/goCaptcha/internal/stores"
	"github.com/MrEthical07/goCaptcha/pass"
)

// Engine runs challenge sessions. Build one with [Builder]; all methods are
// safe for concurrent use.
type Engine struct {
	config    Config
	generator *challenge.Generator
	flow      flows.Service

	source    ResponseSource
	delivery  ChallengeDelivery
	retractor DeliveryRetractor
	granter   RoleGranter
	revoker   RoleRevoker
	remover   SubjectRemover
	gate      RemovalGate

	limiter *limiters.PresentLimiter
	lock    *stores.SessionLock
	passes  *pass.Manager
	audit   *internalaudit.Dispatcher
	metrics *Metrics

	now    func() time.Time
	closed atomic.Bool

	mu       sync.Mutex
	sessions map[string]*liveSession

	subsMu  sync.RWMutex
	subs    []subscription
	nextSub uint64
}

type liveSession struct {
	id     string
	cancel context.CancelCauseFunc
}

type subscription struct {
	id uint64
	fn Subscriber
}

// PassClaims is the verified content of a verification pass.
type PassClaims struct {
	SubjectID string
	SessionID string
	Attempt   int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Close cancels every running session and flushes the audit dispatcher.
// Present fails with ErrEngineNotReady afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if !e.closed.CompareAndSwap(false, true) {
		return
	}

	e.mu.Lock()
	for _, s := range e.sessions {
		s.cancel(ErrSessionCanceled)
	}
	e.mu.Unlock()

	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditSinkPanics returns how many audit events were lost to a panicking sink.
func (e *Engine) AuditSinkPanics() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.SinkPanics()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Subscribe registers fn for every outcome of every session. The returned
// function removes it; calling it more than once is harmless.
func (e *Engine) Subscribe(fn Subscriber) (unsubscribe func()) {
	if e == nil || fn == nil {
		return func() {}
	}

	e.subsMu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Cancel stops the running session for subjectID. It reports whether a
// session was found.
func (e *Engine) Cancel(subjectID string) bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[subjectID]
	if !ok {
		return false
	}
	s.cancel(ErrSessionCanceled)
	return true
}

// ActiveSessions returns the number of sessions running on this engine.
func (e *Engine) ActiveSessions() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// VerifyPass checks a pass minted by this engine (or any engine sharing its
// verification key).
func (e *Engine) VerifyPass(ctx context.Context, token string) (*PassClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.passes == nil {
		return nil, ErrPassDisabled
	}

	claims, err := e.passes.Verify(token)
	if err != nil {
		e.metricInc(MetricPassRejected)
		err = fmt.Errorf("%w: %v", ErrPassInvalid, err)
		e.emitAudit(ctx, auditEventPassRejected, false, "", "", 0, err, nil)
		return nil, err
	}

	out := &PassClaims{
		SubjectID: claims.Subject,
		SessionID: claims.SessionID,
		Attempt:   claims.Attempt,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	e.emitAudit(ctx, auditEventPassVerified, true, out.SubjectID, out.SessionID, out.Attempt, nil, nil)
	return out, nil
}

func (e *Engine) register(subjectID, sessionID string, cancel context.CancelCauseFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[subjectID]; ok {
		return false
	}
	e.sessions[subjectID] = &liveSession{id: sessionID, cancel: cancel}
	return true
}

func (e *Engine) unregister(subjectID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[subjectID]; ok && s.id == sessionID {
		delete(e.sessions, subjectID)
	}
}

func (e *Engine) notify(ctx context.Context, o Outcome) {
	e.subsMu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.subsMu.RUnlock()

	for _, s := range subs {
		e.callSubscriber(ctx, s.fn, o.clone())
	}
}

func (e *Engine) callSubscriber(ctx context.Context, fn Subscriber, o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("goCaptcha: subscriber panicked on %s for subject %s: %v", o.Kind, o.SubjectID, r)
		}
	}()
	fn(ctx, o)
}
