package otel

import (
	"context"
	"errors"
	"fmt"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type histogramInstruments struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine counters through observable instruments read
// on every collection cycle. Histogram buckets are one gauge per family with
// an "le" attribute on each point.
type OTelExporter struct {
	source       internaldefs.Source
	registration metric.Registration
	counters     map[string]metric.Int64ObservableCounter
	histograms   map[string]histogramInstruments
	bucketAttrs  []metric.ObserveOption
}

func NewOTelExporter(meter metric.Meter, engine *goCaptcha.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source internaldefs.Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:      source,
		counters:    make(map[string]metric.Int64ObservableCounter),
		histograms:  make(map[string]histogramInstruments),
		bucketAttrs: make([]metric.ObserveOption, len(internaldefs.HistogramBounds)),
	}
	for i, le := range internaldefs.HistogramBounds {
		exporter.bucketAttrs[i] = metric.WithAttributes(attribute.String("le", le))
	}

	families, _ := internaldefs.Collect(source)
	var observables []metric.Observable
	for _, f := range families {
		if f.Kind == internaldefs.KindHistogram {
			buckets, err := meter.Int64ObservableGauge(f.Name+"_bucket", metric.WithDescription(f.Help+" Cumulative bucket counts."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", f.Name, err)
			}
			count, err := meter.Int64ObservableGauge(f.Name+"_count", metric.WithDescription(f.Help+" Sample count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram count gauge %s: %w", f.Name, err)
			}
			exporter.histograms[f.Name] = histogramInstruments{buckets: buckets, count: count}
			observables = append(observables, buckets, count)
			continue
		}

		ins, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", f.Name, err)
		}
		exporter.counters[f.Name] = ins
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	families, _ := internaldefs.Collect(e.source)
	for _, f := range families {
		if h, ok := e.histograms[f.Name]; ok {
			for i, v := range f.Buckets {
				observer.ObserveInt64(h.buckets, int64(v), e.bucketAttrs[i])
			}
			observer.ObserveInt64(h.count, int64(f.Count()))
			continue
		}
		if c, ok := e.counters[f.Name]; ok {
			observer.ObserveInt64(c, int64(f.Value))
		}
	}
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
