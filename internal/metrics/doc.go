// Package metrics provides lock-free counters and latency histograms for
// goCaptcha observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. Histograms use 8 fixed buckets
// (≤1s … +Inf) sized for human solve times. Both are allocation-free on the
// write path.
//
// # Architecture boundaries
//
// This package owns metric storage. Metric IDs and names live in the root
// package; export (Prometheus, OTel) lives in metrics/export/.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import goCaptcha or any sibling package.
//   - Expose global metric registries.
package metrics
