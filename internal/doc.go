// Package internal holds the private building blocks behind the goCaptcha
// engine.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: attempt state machine, attempt loop and presentation flow
//   - limiters: presentation rate limiter
//   - metrics: lock-free counters and latency histograms
//   - rate: Redis fixed-window counter primitive
//   - security: configuration posture report
//   - stores: Redis session lock
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCaptcha API.
//   - Be imported by any package outside the goCaptcha module.
package internal
