// Package rate provides the fixed-window Redis counter that domain limiters
// in internal/limiters are built from.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Callers own their key prefixes.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goCaptcha module.
package rate
