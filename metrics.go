package goCaptcha

import (
	"time"

	internalmetrics "github.com/MrEthical07/goCaptcha/internal/metrics"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricChallengeGenerated MetricID = iota
	MetricPrompted
	MetricAnswerReceived
	MetricSuccess
	MetricFailure
	MetricTimedOut
	MetricCanceled
	MetricDeliveryFailure
	MetricRedeliveryFailure
	MetricRenderFailure
	MetricResponseSourceFailure
	MetricSideEffectFailure
	MetricRateLimited
	MetricSessionConflict
	MetricPassIssued
	MetricPassRejected
	// MetricSolveLatency is the histogram of time from first prompt to success.
	MetricSolveLatency
	metricIDCount
)

// HistogramBucketCount is the number of latency buckets, the last being +Inf.
const HistogramBucketCount = internalmetrics.BucketCount

// Metrics is the engine's counter set. All methods are nil-safe.
type Metrics struct {
	set *internalmetrics.Set
}

type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{set: internalmetrics.New(int(metricIDCount), cfg.Enabled, cfg.EnableLatencyHistograms)}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.set.Enabled()
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.set.LatencyEnabled()
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.set.Inc(int(id))
}

// Observe records d; only MetricSolveLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || id != MetricSolveLatency {
		return
	}
	m.set.Observe(int(id), d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.set.Value(int(id))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if !m.Enabled() {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricSolveLatency {
			continue
		}
		s.Counters[id] = m.set.Value(int(id))
	}
	if m.LatencyEnabled() {
		s.Histograms[MetricSolveLatency] = m.set.Buckets(int(MetricSolveLatency))
	}
	return s
}
