// Package metrics adapts droned.Observer onto Prometheus collectors, so
// the subsystem can expose a /metrics endpoint alongside its in-memory
// droned.Metrics snapshot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusObserver implements droned.Observer by recording into a
// dedicated Prometheus registry. Counters are labeled by actor role where
// the underlying event is role-scoped (ticks, respawns); the rest are
// scalar counters and a single latency histogram.
type PrometheusObserver struct {
	registry *prometheus.Registry

	ticks       *prometheus.CounterVec
	tickLatency prometheus.Histogram
	aborts      prometheus.Counter
	flyTimeouts prometheus.Counter
	respawns    *prometheus.CounterVec
	lockResets  prometheus.Counter
	semTimeouts prometheus.Counter
	noFix       prometheus.Counter
	reconnects  prometheus.Counter
	bindRetries prometheus.Counter
}

// NewPrometheusObserver creates an observer with a fresh registry and
// registers every collector on it.
func NewPrometheusObserver() *PrometheusObserver {
	reg := prometheus.NewRegistry()

	o := &PrometheusObserver{
		registry: reg,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "droned_actor_ticks_total",
			Help: "Total ticks executed, labeled by actor role.",
		}, []string{"role"}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "droned_tick_latency_seconds",
			Help:    "Per-tick latency across all actors.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
		aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_aborts_total",
			Help: "Total transitions into Abort.",
		}),
		flyTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_fly_timeouts_total",
			Help: "Stall-detected Fly->Abort transitions.",
		}),
		respawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "droned_respawns_total",
			Help: "Actor respawns after a crash, labeled by role.",
		}, []string{"role"}),
		lockResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_lock_resets_total",
			Help: "Supervisor lock reinitializations.",
		}),
		semTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_sem_timeouts_total",
			Help: "GPS ring empty-wait timeouts.",
		}),
		noFix: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_no_fix_total",
			Help: "Telemetry GPS drain timeouts (NO FIX.).",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_reconnects_total",
			Help: "Successful telemetry TCP (re)connections.",
		}),
		bindRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droned_bind_retries_total",
			Help: "Flight controller UDP bind retries.",
		}),
	}

	reg.MustRegister(o.ticks, o.tickLatency, o.aborts, o.flyTimeouts, o.respawns,
		o.lockResets, o.semTimeouts, o.noFix, o.reconnects, o.bindRetries)

	return o
}

// Handler returns an http.Handler exposing this observer's registry.
func (o *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// ObserveTick implements droned.Observer.
func (o *PrometheusObserver) ObserveTick(role string, latencyNs uint64) {
	o.ticks.WithLabelValues(role).Inc()
	o.tickLatency.Observe(float64(latencyNs) / 1e9)
}

// ObserveAbort implements droned.Observer.
func (o *PrometheusObserver) ObserveAbort() { o.aborts.Inc() }

// ObserveFlyTimeout implements droned.Observer.
func (o *PrometheusObserver) ObserveFlyTimeout() { o.flyTimeouts.Inc() }

// ObserveRespawn implements droned.Observer.
func (o *PrometheusObserver) ObserveRespawn(role string) { o.respawns.WithLabelValues(role).Inc() }

// ObserveLockReset implements droned.Observer.
func (o *PrometheusObserver) ObserveLockReset() { o.lockResets.Inc() }

// ObserveSemTimeout implements droned.Observer.
func (o *PrometheusObserver) ObserveSemTimeout() { o.semTimeouts.Inc() }

// ObserveNoFix implements droned.Observer.
func (o *PrometheusObserver) ObserveNoFix() { o.noFix.Inc() }

// ObserveReconnect implements droned.Observer.
func (o *PrometheusObserver) ObserveReconnect() { o.reconnects.Inc() }

// ObserveBindRetry implements droned.Observer.
func (o *PrometheusObserver) ObserveBindRetry() { o.bindRetries.Inc() }
