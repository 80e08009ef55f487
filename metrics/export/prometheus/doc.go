// Package prometheus renders goCaptcha engine metrics in Prometheus text
// exposition format.
//
// Counter names follow gocaptcha_*_total and the single histogram is
// gocaptcha_solve_latency_seconds. Nothing is registered globally; callers
// mount [PrometheusExporter.Handler] wherever they serve metrics.
package prometheus
