package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports link metrics in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given
// collector. The namespace is prepended to all metric names
// (e.g., "radiolink").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(e.collector.labels)

	counters := []struct {
		name  string
		help  string
		value uint64
	}{
		{"packets_sent_total", "Total radio packets acknowledged on transmit", snap.PacketsSent},
		{"packets_received_total", "Total radio packets received", snap.PacketsReceived},
		{"bytes_sent_total", "Total payload bytes sent", snap.BytesSent},
		{"bytes_received_total", "Total payload bytes received", snap.BytesReceived},
		{"messages_sent_total", "Total messages fully transmitted", snap.MessagesSent},
		{"messages_received_total", "Total messages delivered to mailboxes", snap.MessagesReceived},
		{"write_failures_total", "Total radio writes without auto-ACK", snap.WriteFailures},
		{"replays_blocked_total", "Total ciphertexts rejected by the replay watermark", snap.ReplaysBlocked},
		{"decrypt_failures_total", "Total messages that failed to decrypt", snap.DecryptFailures},
		{"reassembly_drops_total", "Total messages dropped for fragment mismatch", snap.ReassemblyDrops},
		{"reassembly_timeouts_total", "Total partial messages expired by inactivity", snap.ReassemblyTimeouts},
		{"pairings_started_total", "Total pairing procedures started", snap.PairingsStarted},
		{"pairings_completed_total", "Total pairing procedures completed", snap.PairingsCompleted},
		{"pairings_aborted_total", "Total pairing procedures aborted", snap.PairingsAborted},
		{"unpairs_total", "Total peers removed from the directory", snap.Unpairs},
	}

	for _, c := range counters {
		e.writeHelp(w, c.name, c.help)
		e.writeType(w, c.name, "counter")
		e.writeMetric(w, c.name, labels, float64(c.value))
	}

	e.writeHelp(w, "uptime_seconds", "Seconds since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())
}

func (e *PrometheusExporter) metricName(name string) string {
	if e.namespace == "" {
		return name
	}
	return e.namespace + "_" + name
}

func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n", e.metricName(name), help)
}

func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s %s\n", e.metricName(name), typ)
}

func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	fmt.Fprintf(w, "%s%s %g\n", e.metricName(name), labels, value)
}

func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
