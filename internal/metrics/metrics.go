// Package metrics exposes interlock state as Prometheus metrics on a private
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

const namespace = "interlock"

// Label values of interlock_link_messages_total.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Metrics holds the collectors of one node.
type Metrics struct {
	registry *prometheus.Registry

	state        prometheus.Gauge
	trips        *prometheus.CounterVec
	runtime      prometheus.Gauge
	cooldown     prometheus.Gauge
	relay        *prometheus.GaugeVec
	linkUp       prometheus.Gauge
	linkAge      prometheus.Gauge
	linkMessages *prometheus.CounterVec
	cycles       prometheus.Counter
	sampleErrors prometheus.Counter
}

// New registers the interlock collectors plus the Go and process collectors
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Latch state (0=normal, 1=error)",
		}),
		trips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_total",
			Help:      "Total number of latch trips by reason",
		}, []string{"reason"}),
		runtime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runtime_seconds",
			Help:      "Elapsed seconds of the current or last compressor run",
		}),
		cooldown: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_remaining",
			Help:      "Cycles left in the vent cooldown",
		}),
		relay: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay",
			Help:      "Commanded relay state (0=off, 1=on)",
		}, []string{"relay"}),
		linkUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_up",
			Help:      "Transport link state (0=down, 1=up)",
		}),
		linkAge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_age_seconds",
			Help:      "Seconds since the last valid peer message",
		}),
		linkMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_messages_total",
			Help:      "Peer messages received by decode result",
		}, []string{"result"}),
		cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of control cycles",
		}),
		sampleErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_errors_total",
			Help:      "Cycles skipped because an input could not be read",
		}),
	}

	// Pre-create label sets so they export as zero before the first event.
	for _, r := range []logic.TripReason{logic.TripRuntimeLimit, logic.TripLinkTimeout} {
		m.trips.WithLabelValues(string(r))
	}
	m.linkMessages.WithLabelValues(ResultAccepted)
	m.linkMessages.WithLabelValues(ResultRejected)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records the result of one control cycle.
func (m *Metrics) ObserveCycle(res logic.Result) {
	m.cycles.Inc()
	if res.State == logic.StateError {
		m.state.Set(1)
	} else {
		m.state.Set(0)
	}
	if res.Tripped != nil {
		m.trips.WithLabelValues(string(res.Tripped.Reason)).Inc()
	}
	m.runtime.Set(float64(res.RuntimeSeconds))
	m.cooldown.Set(float64(res.CooldownRemaining))

	m.relay.WithLabelValues("enable").Set(boolFloat(res.Outputs.Enable))
	m.relay.WithLabelValues("dryer").Set(boolFloat(res.Outputs.Dryer))
	m.relay.WithLabelValues("drain").Set(boolFloat(res.Outputs.Drain))
	m.relay.WithLabelValues("vent").Set(boolFloat(res.Outputs.Vent))
}

// ObserveLink records the transport state and message age.
func (m *Metrics) ObserveLink(up bool, age time.Duration) {
	m.linkUp.Set(boolFloat(up))
	m.linkAge.Set(age.Seconds())
}

// LinkMessage counts one received peer message.
func (m *Metrics) LinkMessage(accepted bool) {
	if accepted {
		m.linkMessages.WithLabelValues(ResultAccepted).Inc()
		return
	}
	m.linkMessages.WithLabelValues(ResultRejected).Inc()
}

// SampleError counts a cycle skipped on an input read failure.
func (m *Metrics) SampleError() {
	m.sampleErrors.Inc()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
