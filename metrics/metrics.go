// Package metrics exposes Prometheus instrumentation for the coordinator.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flashbots/aquanet/protocol"
)

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server
}

// New creates a metrics server for the given namespace and listen address.
// An empty address creates a server that is never started; Collector still
// works against its registry.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		registry: registry,
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// Registry returns the underlying registry for additional collectors.
func (m *MetricsServer) Registry() *prometheus.Registry { return m.registry }

// ListenAndServe starts the scrape endpoint. Blocks until shutdown.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the scrape endpoint.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Collector counts coordinator events by type and tracks period state. It
// implements coordinator.EventSink, so it can be chained behind a durable
// sink.
type Collector struct {
	events         *prometheus.CounterVec
	activeRegions  prometheus.Gauge
	activePeriods  prometheus.Gauge
	pendingReveals prometheus.Gauge
}

// NewCollector registers the coordinator metrics with the registry.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinator_events_total",
			Help:      "Coordinator state transitions by event type.",
		}, []string{"type"}),
		activeRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coordinator_active_regions",
			Help:      "Registered regions that have not been deactivated.",
		}),
		activePeriods: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coordinator_active_periods",
			Help:      "Allocation periods started and not yet settled.",
		}),
		pendingReveals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coordinator_pending_reveals",
			Help:      "Decryption requests awaiting the engine's answer.",
		}),
	}
	registry.MustRegister(c.events, c.activeRegions, c.activePeriods, c.pendingReveals)
	return c
}

// Append updates the counters from a coordinator event.
func (c *Collector) Append(event protocol.Event) error {
	c.events.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case protocol.EventRegionRegistered:
		c.activeRegions.Inc()
	case protocol.EventRegionDeactivated:
		c.activeRegions.Dec()
	}

	switch event.Type {
	case protocol.EventPeriodStarted:
		c.activePeriods.Inc()
	case protocol.EventDistributionCompleted, protocol.EventRevealFailed, protocol.EventTimeoutTriggered:
		c.activePeriods.Dec()
	}

	switch event.Type {
	case protocol.EventRevealRequested:
		c.pendingReveals.Inc()
	case protocol.EventDistributionCompleted, protocol.EventRevealFailed, protocol.EventTimeoutTriggered:
		c.pendingReveals.Dec()
	}
	return nil
}
