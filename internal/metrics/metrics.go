// Package metrics exposes Prometheus metrics for network assembly,
// simulation runs and result persistence.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/arterialgo/internal/network"
)

// Registry holds all metrics for the application
type Registry struct {
	// Assembly Metrics
	AssembliesTotal  *prometheus.CounterVec
	AssemblyDuration prometheus.Histogram
	NetworkSegments  *prometheus.GaugeVec
	NetworkProbes    prometheus.Gauge
	NetworkEdges     prometheus.Gauge

	// Simulation Metrics
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	SimulationSteps    prometheus.Counter

	// Result Metrics
	RunsSavedTotal prometheus.Counter

	registry *prometheus.Registry
	mu       sync.Mutex
}

var _ network.Observer = (*Registry)(nil)

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initAssemblyMetrics()
	r.initSimulationMetrics()
	return r
}

func (r *Registry) initAssemblyMetrics() {
	r.AssembliesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "arterial_assemblies_total",
			Help: "Total number of network assemblies",
		},
		[]string{"status"},
	)

	r.AssemblyDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arterial_assembly_duration_seconds",
			Help:    "Network assembly duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.NetworkSegments = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arterial_network_segments",
			Help: "Segments of the last assembled network by topology",
		},
		[]string{"topology"},
	)

	r.NetworkProbes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "arterial_network_probes",
			Help: "Debug probes of the last assembled network",
		},
	)

	r.NetworkEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "arterial_network_edges",
			Help: "Wires of the last assembled network",
		},
	)
}

func (r *Registry) initSimulationMetrics() {
	r.SimulationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "arterial_simulations_total",
			Help: "Total number of simulation runs",
		},
		[]string{"status"},
	)

	r.SimulationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arterial_simulation_duration_seconds",
			Help:    "Wall-clock simulation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 60.0},
		},
	)

	r.SimulationSteps = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "arterial_simulation_steps_total",
			Help: "Total number of integration steps taken",
		},
	)

	r.RunsSavedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "arterial_runs_saved_total",
			Help: "Total number of runs written to the results database",
		},
	)
}

// ObserveAssembly records a successful assembly.
func (r *Registry) ObserveAssembly(stats network.Stats, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.AssembliesTotal.WithLabelValues("success").Inc()
	r.AssemblyDuration.Observe(elapsed.Seconds())
	r.NetworkSegments.WithLabelValues(network.Terminal.String()).Set(float64(stats.Terminals))
	r.NetworkSegments.WithLabelValues(network.Direct.String()).Set(float64(stats.Direct))
	r.NetworkSegments.WithLabelValues(network.Bifurcation.String()).Set(float64(stats.Bifurcations))
	r.NetworkProbes.Set(float64(stats.Probes))
	r.NetworkEdges.Set(float64(stats.Edges))
}

// ObserveAssemblyFailure records a failed assembly.
func (r *Registry) ObserveAssemblyFailure(error) {
	r.AssembliesTotal.WithLabelValues("error").Inc()
}

// ObserveSimulation records one simulation run.
func (r *Registry) ObserveSimulation(steps int, elapsed time.Duration, err error) {
	if err != nil {
		r.SimulationsTotal.WithLabelValues("error").Inc()
		return
	}
	r.SimulationsTotal.WithLabelValues("success").Inc()
	r.SimulationDuration.Observe(elapsed.Seconds())
	r.SimulationSteps.Add(float64(steps))
}

// ObserveSave records a run written to the results database.
func (r *Registry) ObserveSave() {
	r.RunsSavedTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
