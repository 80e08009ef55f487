package goCaptcha

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// fixedRenderer skips rasterization; the image is just tagged text.
type fixedRenderer struct{}

func (fixedRenderer) Render(text string) ([]byte, error) {
	return []byte("img:" + text), nil
}

type failingRenderer struct{}

func (failingRenderer) Render(string) ([]byte, error) {
	return nil, errors.New("no raster backend")
}

type fakeDelivery struct {
	mu           sync.Mutex
	deliveries   []DeliveryRequest
	redeliveries []DeliveryRequest
	handles      []string
	deliverErr   error
	redeliverErr error
}

func (d *fakeDelivery) Deliver(_ context.Context, req DeliveryRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliverErr != nil {
		return "", d.deliverErr
	}
	d.deliveries = append(d.deliveries, req)
	return "msg-" + req.SessionID, nil
}

func (d *fakeDelivery) Redeliver(_ context.Context, handle string, req DeliveryRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles = append(d.handles, handle)
	d.redeliveries = append(d.redeliveries, req)
	return d.redeliverErr
}

func (d *fakeDelivery) lastText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deliveries) == 0 {
		return ""
	}
	return d.deliveries[len(d.deliveries)-1].Challenge.Text
}

func (d *fakeDelivery) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deliveries), len(d.redeliveries)
}

type retractingDelivery struct {
	*fakeDelivery
	mu        sync.Mutex
	retracted []OutcomeKind
}

func (d *retractingDelivery) Retract(_ context.Context, _ string, final OutcomeKind) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retracted = append(d.retracted, final)
	return nil
}

// step is one scripted AwaitOne result. correct answers with the delivered
// challenge text; block waits for the attempt context to end.
type step struct {
	text    string
	correct bool
	none    bool
	block   bool
	delay   time.Duration
	err     error
}

type scriptedSource struct {
	mu       sync.Mutex
	delivery *fakeDelivery
	steps    []step
	calls    int
	subjects []string
}

func (s *scriptedSource) AwaitOne(ctx context.Context, filter func(string) bool, _ time.Duration) (string, bool, error) {
	s.mu.Lock()
	s.calls++
	if filter != nil {
		for _, id := range []string{"alice", "bob"} {
			if filter(id) {
				s.subjects = append(s.subjects, id)
			}
		}
	}
	if len(s.steps) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return "", false, ctx.Err()
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	if st.delay > 0 {
		select {
		case <-time.After(st.delay):
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	switch {
	case st.block:
		<-ctx.Done()
		return "", false, ctx.Err()
	case st.err != nil:
		return "", false, st.err
	case st.none:
		return "", false, nil
	case st.correct:
		return s.delivery.lastText(), true, nil
	default:
		return st.text, true, nil
	}
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type authRecorder struct {
	grants    atomic.Int64
	revokes   atomic.Int64
	removes   atomic.Int64
	grantErr  error
	removeErr error
}

func (a *authRecorder) funcs() AuthorizationFuncs {
	return AuthorizationFuncs{
		Grant: func(context.Context, string) error {
			a.grants.Add(1)
			return a.grantErr
		},
		Revoke: func(context.Context, string) error {
			a.revokes.Add(1)
			return nil
		},
		Remove: func(context.Context, string) error {
			a.removes.Add(1)
			return a.removeErr
		},
	}
}

type outcomeLog struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (l *outcomeLog) record(_ context.Context, o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, o)
}

func (l *outcomeLog) kinds() []OutcomeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]OutcomeKind, 0, len(l.outcomes))
	for _, o := range l.outcomes {
		out = append(out, o.Kind)
	}
	return out
}

type harness struct {
	engine   *Engine
	delivery *fakeDelivery
	source   *scriptedSource
	auth     *authRecorder
	log      *outcomeLog
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.PerAttemptTimeout = 5 * time.Second
	return cfg
}

func newHarness(t *testing.T, cfg Config, steps []step, configure ...func(*harness, *Builder)) *harness {
	t.Helper()

	h := &harness{
		delivery: &fakeDelivery{},
		auth:     &authRecorder{},
		log:      &outcomeLog{},
	}
	h.source = &scriptedSource{delivery: h.delivery, steps: steps}

	b := New().
		WithConfig(cfg).
		WithResponseSource(h.source).
		WithDelivery(h.delivery).
		WithAuthorization(h.auth.funcs()).
		WithRenderer(fixedRenderer{})
	for _, fn := range configure {
		fn(h, b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	engine.Subscribe(h.log.record)
	h.engine = engine
	return h
}

func equalKinds(got, want []OutcomeKind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
