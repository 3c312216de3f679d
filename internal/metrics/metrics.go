// Package metrics exposes the scanner's Prometheus instrumentation. All
// collectors live on a dedicated registry so tests can build isolated
// instances and the HTTP server can serve exactly this set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the scanner's collectors.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	MarketsFetched    *prometheus.CounterVec
	MatchesFound      prometheus.Counter
	OpportunitiesSeen prometheus.Counter
	AlertsSent        prometheus.Counter
	AdapterErrors     *prometheus.CounterVec
}

// New creates the collector set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_scans_total",
			Help: "Scan jobs processed, by outcome.",
		}, []string{"pair", "outcome"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbscan_scan_duration_seconds",
			Help:    "Wall-clock duration of one scan job.",
			Buckets: prometheus.DefBuckets,
		}),
		MarketsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_markets_fetched_total",
			Help: "Markets fetched per platform, cache hits included.",
		}, []string{"platform", "source"}),
		MatchesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_matches_found_total",
			Help: "Cross-platform market matches emitted.",
		}),
		OpportunitiesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_opportunities_total",
			Help: "Profitable opportunities computed.",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_alerts_sent_total",
			Help: "Alert messages posted to webhooks.",
		}),
		AdapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_adapter_errors_total",
			Help: "Adapter fetch failures per platform.",
		}, []string{"platform"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ScansTotal,
		m.ScanDuration,
		m.MarketsFetched,
		m.MatchesFound,
		m.OpportunitiesSeen,
		m.AlertsSent,
		m.AdapterErrors,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
