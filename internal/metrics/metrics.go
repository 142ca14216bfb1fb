// Package metrics exposes Prometheus instrumentation for the engine and
// the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the engine's metrics on a private registry so tests can
// construct independent instances.
type Set struct {
	registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	ValidationRejects prometheus.Counter
	RootEvents        prometheus.Gauge
	VisibleEvents     prometheus.Gauge
	ConflictEvents    prometheus.Gauge
	PersistErrors     prometheus.Counter
}

// New creates and registers the metric set.
func New() *Set {
	reg := prometheus.NewRegistry()

	s := &Set{
		registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calgrid",
			Name:      "commands_total",
			Help:      "Commands applied to the engine, by command name.",
		}, []string{"command"}),
		ValidationRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calgrid",
			Name:      "validation_rejects_total",
			Help:      "Create/update commands rejected by field validation.",
		}),
		RootEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calgrid",
			Name:      "root_events",
			Help:      "Persisted root events currently held.",
		}),
		VisibleEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calgrid",
			Name:      "visible_events",
			Help:      "Materialized events passing the active filters.",
		}),
		ConflictEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calgrid",
			Name:      "conflict_events",
			Help:      "Visible events currently flagged as conflicting.",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calgrid",
			Name:      "persist_errors_total",
			Help:      "Failed save attempts against the persistence driver.",
		}),
	}

	reg.MustRegister(
		s.CommandsTotal,
		s.ValidationRejects,
		s.RootEvents,
		s.VisibleEvents,
		s.ConflictEvents,
		s.PersistErrors,
		collectors.NewGoCollector(),
	)
	return s
}

// Handler returns the /metrics HTTP handler for this set.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
