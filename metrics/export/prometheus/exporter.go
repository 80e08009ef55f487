package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/MrEthical07/goCaptcha/metrics/export/internaldefs"
)

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source internaldefs.Source
}

func NewPrometheusExporter(engine *goCaptcha.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from anything exposing a snapshot,
// which keeps tests independent of a running engine.
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves [PrometheusExporter.Render] on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns "" while metrics are disabled and the audit counters are zero.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	families, active := internaldefs.Collect(p.source)
	if !active {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, f := range families {
		writeFamily(&b, f)
	}
	return b.String()
}

func writeFamily(w io.Writer, f internaldefs.Family) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.Name, escapeHelp(f.Help), f.Name, f.Kind)

	if f.Kind != internaldefs.KindHistogram {
		fmt.Fprintf(w, "%s %d\n", f.Name, f.Value)
		return
	}

	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", f.Name, le, f.Buckets[i])
	}
	fmt.Fprintf(w, "%s_count %d\n", f.Name, f.Count())
	// Snapshots carry only bucket counts.
	fmt.Fprintf(w, "%s_sum 0\n", f.Name)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
