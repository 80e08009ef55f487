// Package random provides the uniform [0, 1) source every randomized decision in
// goCaptcha draws from, and a Fisher–Yates shuffle driven by it.
//
// # Entropy contract
//
// [System] reads from crypto/rand. Each draw consumes 8 bytes and keeps the top
// 53 bits, so derivations of the form floor(Float64() * n) are unbiased for n
// well past 2^20. A failing entropy source panics: there is no fallback to a
// weaker generator.
//
// # What this package must NOT do
//
//   - Seed or fall back to math/rand.
//   - Hold per-call mutable state outside the wrapped reader.
package random
