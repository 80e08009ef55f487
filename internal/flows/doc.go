// Package flows contains the pure-function orchestration behind Engine.Present.
//
// The attempt state machine is an immutable [Session] value advanced by
// [Transition], which returns the next value and at most one [Emission].
// [RunAttempts] drives Transition in a loop, suspending only inside the
// injected await dependency.
//
// # Architecture boundaries
//
// Flow functions coordinate the response source, the emitter and the delivery
// callbacks handed in through dependency structs. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCaptcha (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
