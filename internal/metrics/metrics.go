package metrics

import (
	"sync/atomic"
	"time"
)

const (
	// BucketCount is the number of latency buckets, the last one being +Inf.
	BucketCount   = 8
	cacheLineSize = 64
)

// BucketBounds are the inclusive upper bounds of the first BucketCount-1
// buckets. Challenge sessions are human-paced, so bounds run in seconds.
var BucketBounds = [BucketCount - 1]time.Duration{
	time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type histogram struct {
	buckets [BucketCount]uint64
}

// Set is a fixed-size group of counters with an equally sized group of
// optional histograms, indexed by small integer IDs.
type Set struct {
	enabled       bool
	enableLatency bool
	counters      []paddedCounter
	histograms    []histogram
}

// New allocates size counter slots. A disabled set ignores every write.
func New(size int, enabled, latency bool) *Set {
	if size < 0 {
		size = 0
	}
	return &Set{
		enabled:       enabled,
		enableLatency: enabled && latency,
		counters:      make([]paddedCounter, size),
		histograms:    make([]histogram, size),
	}
}

func (s *Set) Enabled() bool {
	return s != nil && s.enabled
}

func (s *Set) LatencyEnabled() bool {
	return s != nil && s.enableLatency
}

func (s *Set) Inc(id int) {
	if s == nil || !s.enabled || id < 0 || id >= len(s.counters) {
		return
	}
	atomic.AddUint64(&s.counters[id].value, 1)
}

func (s *Set) Observe(id int, d time.Duration) {
	if s == nil || !s.enableLatency || id < 0 || id >= len(s.histograms) {
		return
	}
	atomic.AddUint64(&s.histograms[id].buckets[BucketIndex(d)], 1)
}

func (s *Set) Value(id int) uint64 {
	if s == nil || id < 0 || id >= len(s.counters) {
		return 0
	}
	return atomic.LoadUint64(&s.counters[id].value)
}

// Buckets returns a non-cumulative copy of histogram id.
func (s *Set) Buckets(id int) []uint64 {
	out := make([]uint64, BucketCount)
	if s == nil || id < 0 || id >= len(s.histograms) {
		return out
	}
	for i := range out {
		out[i] = atomic.LoadUint64(&s.histograms[id].buckets[i])
	}
	return out
}

// Len reports the number of counter slots.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.counters)
}

// BucketIndex maps d to its histogram bucket.
func BucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return BucketCount - 1
}
