package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/bus"
	otelexport "github.com/MrEthical07/goCaptcha/metrics/export/otel"
	"github.com/MrEthical07/goCaptcha/random"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	wrong       float64
	useRedis    bool
	redisAddr   string
	otel        bool
}

func newLoadtestCmd(cfg *envConfig) *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run concurrent sessions against simulated responders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessions <= 0 || opts.concurrency <= 0 {
				return fmt.Errorf("sessions and concurrency must be > 0")
			}
			if opts.wrong < 0 || opts.wrong > 1 {
				return fmt.Errorf("wrong must be within [0, 1]")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), *cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.sessions, "sessions", 1000, "number of sessions to run")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().Float64Var(&opts.wrong, "wrong", 0.2, "probability a simulated answer is wrong")
	cmd.Flags().BoolVar(&opts.useRedis, "redis", false, "enable the Redis limiter and session lock")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; miniredis is used when empty")
	cmd.Flags().BoolVar(&opts.otel, "otel", false, "also dump engine metrics collected through OpenTelemetry")
	cmd.Flags().IntVar(&cfg.Attempts, "attempts", cfg.Attempts, "attempts per session")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-attempt timeout")
	return cmd
}

// responder answers every prompt it is handed, wrongly with probability wrong.
type responder struct {
	bus   *bus.MemorySource
	wrong float64
}

func (r responder) Deliver(ctx context.Context, req goCaptcha.DeliveryRequest) (string, error) {
	go r.answer(ctx, req)
	return req.SessionID, nil
}

func (r responder) Redeliver(ctx context.Context, _ string, req goCaptcha.DeliveryRequest) error {
	go r.answer(ctx, req)
	return nil
}

func (r responder) answer(ctx context.Context, req goCaptcha.DeliveryRequest) {
	text := req.Challenge.Text
	if random.Float64() < r.wrong {
		text = "?" + text
	}
	// Publish only lands once the engine is awaiting this subject.
	for r.bus.Publish(req.SubjectID, text) == 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func runLoadtest(ctx context.Context, w io.Writer, cfg envConfig, opts loadtestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	engineCfg := goCaptcha.DefaultConfig()
	engineCfg.Session = cfg.sessionConfig()
	engineCfg.Session.GrantOnSuccess = false
	engineCfg.Audit.Enabled = false
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true

	responses := bus.NewMemorySource()
	builder := goCaptcha.New().
		WithResponseSource(responses).
		WithDelivery(responder{bus: responses, wrong: opts.wrong})

	if opts.useRedis {
		client, cleanup, err := openRedis(w, opts.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()

		engineCfg.Limits.Enabled = true
		engineCfg.Limits.MaxPresentations = opts.sessions
		engineCfg.Limits.Window = time.Hour
		engineCfg.Lock.Enabled = true
		builder = builder.WithRedis(client)
	}

	engine, err := builder.WithConfig(engineCfg).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, opts.sessions)
		outcomes  = map[goCaptcha.OutcomeKind]int{}
	)

	start := time.Now()
	for i := 0; i < opts.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n := int(atomic.AddInt64(&cursor, 1)) - 1
				if n >= opts.sessions {
					return
				}
				t0 := time.Now()
				res, err := engine.Present(ctx, fmt.Sprintf("subject-%d", n))
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					outcomes[res.Outcome.Kind]++
				}
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	wg.Wait()

	stats := computeStats(time.Since(start), latencies, failures)
	fmt.Fprintln(w, "---- results ----")
	printStats(w, "sessions", stats)
	for _, kind := range []goCaptcha.OutcomeKind{goCaptcha.OutcomeSuccess, goCaptcha.OutcomeFailure, goCaptcha.OutcomeTimedOut} {
		fmt.Fprintf(w, "%s=%d\n", kind, outcomes[kind])
	}
	fmt.Fprintf(w, "redeliveries_failed=%d\n", engine.MetricsSnapshot().Counters[goCaptcha.MetricRedeliveryFailure])

	if opts.otel {
		return dumpOTel(ctx, w, engine)
	}
	return nil
}

// dumpOTel collects once through a manual reader and prints every non-zero
// integer data point.
func dumpOTel(ctx context.Context, w io.Writer, engine *goCaptcha.Engine) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exp, err := otelexport.NewOTelExporter(provider.Meter("captchactl"), engine)
	if err != nil {
		return err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	fmt.Fprintln(w, "---- otel ----")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			}
			for _, p := range points {
				if p.Value == 0 {
					continue
				}
				if le, ok := p.Attributes.Value("le"); ok {
					fmt.Fprintf(w, "%s{le=%q} %d\n", m.Name, le.AsString(), p.Value)
					continue
				}
				fmt.Fprintf(w, "%s %d\n", m.Name, p.Value)
			}
		}
	}
	return nil
}

func openRedis(w io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(w, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(w, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type phaseStats struct {
	total    time.Duration
	count    int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	perS     float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		count:    len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		perS:     float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: count=%d errors=%d total=%s per_sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.count,
		s.failures,
		s.total.Round(time.Millisecond),
		s.perS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
