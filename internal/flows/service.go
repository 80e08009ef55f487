package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Present.Deliver != nil
}

// Present runs one presentation. Await and emit are session-scoped (they close
// over the subject), so the engine binds them per call.
func (s Service) Present(ctx context.Context, req PresentRequest, attempt AttemptDeps) PresentResult {
	deps := s.deps.Present
	deps.Attempt = attempt
	return RunPresent(ctx, req, deps)
}
