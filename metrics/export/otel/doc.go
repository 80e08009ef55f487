// Package otel publishes goCaptcha engine metrics through OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per solve-latency bucket. A single callback
// reads [goCaptcha.Engine.MetricsSnapshot] on each collection cycle.
//
// Callers own the MeterProvider and pass a Meter in.
package otel
