// Package goCaptcha presents image challenges to subjects over an arbitrary
// transport, evaluates their typed answers under a bounded attempt budget, and
// dispatches authorization side effects (grant, revoke, remove) when a session
// resolves.
//
// An [Engine] is assembled with [Builder] from a [ResponseSource] that hears
// subjects and a [ChallengeDelivery] that shows them the challenge. Engine
// methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goCaptcha is the public surface. It exposes [Engine], [Builder], [Config],
// the capability interfaces and value types ([Outcome], [Result],
// [MetricsSnapshot]). Attempt accounting, presentation limits, session locks
// and audit dispatch live under internal/ and are never exported.
//
// # Session contract
//
// At most one session runs per subject per engine (and per Redis deployment
// when the session lock is enabled). Present blocks until the session reaches
// Success, Failure or TimedOut, or until it is canceled. Subscribers see every
// outcome synchronously and in order; side effects run after the terminal
// outcome and never change it.
package goCaptcha
