package internaldefs

import (
	"strconv"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	internalmetrics "github.com/MrEthical07/goCaptcha/internal/metrics"
)

// Source is what the exporters scrape. *goCaptcha.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goCaptcha.MetricsSnapshot
	AuditDropped() uint64
	AuditSinkPanics() uint64
}

var _ Source = (*goCaptcha.Engine)(nil)

// Kind is the exposition type of a family.
type Kind uint8

const (
	KindCounter Kind = iota
	KindHistogram
)

func (k Kind) String() string {
	if k == KindHistogram {
		return "histogram"
	}
	return "counter"
}

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goCaptcha.MetricID
	Name string
	Help string
}

// EngineCounter is read from the engine itself rather than the snapshot, so
// it is reported even while engine metrics are disabled.
type EngineCounter struct {
	Name string
	Help string
	Read func(Source) uint64
}

var CounterDefs = []CounterDef{
	{ID: goCaptcha.MetricChallengeGenerated, Name: "gocaptcha_challenge_generated_total", Help: "Challenges generated and rendered."},
	{ID: goCaptcha.MetricPrompted, Name: "gocaptcha_prompted_total", Help: "Attempts on which the subject was prompted."},
	{ID: goCaptcha.MetricAnswerReceived, Name: "gocaptcha_answer_received_total", Help: "Answers received from the subject."},
	{ID: goCaptcha.MetricSuccess, Name: "gocaptcha_success_total", Help: "Sessions that ended in success."},
	{ID: goCaptcha.MetricFailure, Name: "gocaptcha_failure_total", Help: "Sessions that exhausted every attempt."},
	{ID: goCaptcha.MetricTimedOut, Name: "gocaptcha_timed_out_total", Help: "Sessions that ended because the subject did not answer in time."},
	{ID: goCaptcha.MetricCanceled, Name: "gocaptcha_canceled_total", Help: "Sessions canceled before reaching an outcome."},
	{ID: goCaptcha.MetricDeliveryFailure, Name: "gocaptcha_delivery_failure_total", Help: "Initial challenge deliveries that failed."},
	{ID: goCaptcha.MetricRedeliveryFailure, Name: "gocaptcha_redelivery_failure_total", Help: "Follow-up deliveries that failed."},
	{ID: goCaptcha.MetricRenderFailure, Name: "gocaptcha_render_failure_total", Help: "Challenge images that could not be rendered."},
	{ID: goCaptcha.MetricResponseSourceFailure, Name: "gocaptcha_response_source_failure_total", Help: "Response source errors that ended a session."},
	{ID: goCaptcha.MetricSideEffectFailure, Name: "gocaptcha_side_effect_failure_total", Help: "Authorization side effects that failed."},
	{ID: goCaptcha.MetricRateLimited, Name: "gocaptcha_rate_limited_total", Help: "Presentations denied by the per-subject limit."},
	{ID: goCaptcha.MetricSessionConflict, Name: "gocaptcha_session_conflict_total", Help: "Presentations rejected because the subject already had a session."},
	{ID: goCaptcha.MetricPassIssued, Name: "gocaptcha_pass_issued_total", Help: "Verification passes minted."},
	{ID: goCaptcha.MetricPassRejected, Name: "gocaptcha_pass_rejected_total", Help: "Verification passes that failed validation."},
}

var HistogramDefs = []HistogramDef{
	{ID: goCaptcha.MetricSolveLatency, Name: "gocaptcha_solve_latency_seconds", Help: "Time from first prompt to a correct answer."},
}

var EngineCounters = []EngineCounter{
	{
		Name: "gocaptcha_audit_dropped_total",
		Help: "Audit events dropped because the dispatcher buffer was full.",
		Read: func(s Source) uint64 { return s.AuditDropped() },
	},
	{
		Name: "gocaptcha_audit_sink_panics_total",
		Help: "Audit events lost to a panicking sink.",
		Read: func(s Source) uint64 { return s.AuditSinkPanics() },
	},
}

// HistogramBounds are the "le" labels of the latency buckets, in seconds,
// ending with "+Inf".
var HistogramBounds = bucketLabels()

func bucketLabels() []string {
	out := make([]string, 0, len(internalmetrics.BucketBounds)+1)
	for _, bound := range internalmetrics.BucketBounds {
		out = append(out, strconv.FormatFloat(bound.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// Family is one exported metric with the values of a single scrape. Buckets
// are cumulative and only set for histograms.
type Family struct {
	Name    string
	Help    string
	Kind    Kind
	Value   uint64
	Buckets [goCaptcha.HistogramBucketCount]uint64
}

// Count is the histogram's total sample count.
func (f Family) Count() uint64 {
	return f.Buckets[len(f.Buckets)-1]
}

// Collect reads src once and returns every family in exposition order.
// active is false while engine metrics are disabled and every engine counter
// is still zero; exporters render nothing then.
func Collect(src Source) (families []Family, active bool) {
	if src == nil {
		return nil, false
	}

	snapshot := src.MetricsSnapshot()
	active = len(snapshot.Counters) > 0 || len(snapshot.Histograms) > 0

	families = make([]Family, 0, len(CounterDefs)+len(HistogramDefs)+len(EngineCounters))
	for _, def := range CounterDefs {
		families = append(families, Family{Name: def.Name, Help: def.Help, Value: snapshot.Counters[def.ID]})
	}
	for _, def := range HistogramDefs {
		families = append(families, Family{
			Name:    def.Name,
			Help:    def.Help,
			Kind:    KindHistogram,
			Buckets: CumulativeBuckets(NormalizeBuckets(snapshot.Histograms[def.ID])),
		})
	}
	for _, def := range EngineCounters {
		v := def.Read(src)
		if v > 0 {
			active = true
		}
		families = append(families, Family{Name: def.Name, Help: def.Help, Value: v})
	}
	return families, active
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [goCaptcha.HistogramBucketCount]uint64 {
	var out [goCaptcha.HistogramBucketCount]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [goCaptcha.HistogramBucketCount]uint64) [goCaptcha.HistogramBucketCount]uint64 {
	var out [goCaptcha.HistogramBucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
