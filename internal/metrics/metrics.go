// Package metrics exposes the gateway's Prometheus counters and gauges
// (spec.md 5's management HTTP server) for scraping off /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the gateway's metrics. The supervisor loop updates all
// of them except FramesEmitted, which is registered and exposed but not
// incremented by any component.
type Registry struct {
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	AlertsFetched *prometheus.CounterVec // labeled by source name
	AlertsLive    prometheus.Gauge
	FramesEmitted *prometheus.CounterVec // labeled by sink name
	SourceErrors  *prometheus.CounterVec // labeled by source name
	SinkErrors    *prometheus.CounterVec // labeled by sink name
}

// New registers and returns a Registry against reg. Callers typically pass
// prometheus.NewRegistry() so tests don't collide with the global registry.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mowasgw",
			Name:      "cycles_total",
			Help:      "Number of completed supervisor cycles.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mowasgw",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a supervisor cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		AlertsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mowasgw",
			Name:      "alerts_fetched_total",
			Help:      "Alerts fetched, by source.",
		}, []string{"source"}),
		AlertsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mowasgw",
			Name:      "alerts_live",
			Help:      "Head alerts currently in the cache.",
		}),
		FramesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mowasgw",
			Name:      "frames_emitted_total",
			Help:      "AX.25 frames written, by sink.",
		}, []string{"sink"}),
		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mowasgw",
			Name:      "source_errors_total",
			Help:      "Errors encountered fetching or purging a source, by source.",
		}, []string{"source"}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mowasgw",
			Name:      "sink_errors_total",
			Help:      "Errors encountered emitting to a sink, by sink.",
		}, []string{"sink"}),
	}
}
