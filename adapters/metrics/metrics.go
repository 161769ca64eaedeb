// Package metrics provides Prometheus metrics collection for bizadmin.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for bizadmin.
type Collector struct {
	// UI request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Backend metrics
	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BackendRetries  *prometheus.CounterVec

	// Table cache metrics
	TableLoads     *prometheus.CounterVec
	TableMutations *prometheus.CounterVec

	// Relation option cache
	RelationLookups *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector on its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a collector registered with reg. When reg is also
// a Gatherer, Handler serves it.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "requests_total",
				Help:      "Total number of UI requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bizadmin",
				Name:      "request_duration_seconds",
				Help:      "UI request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bizadmin",
				Name:      "requests_in_flight",
				Help:      "Number of UI requests currently being processed",
			},
		),

		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "backend_requests_total",
				Help:      "Total number of REST backend calls",
			},
			[]string{"method", "status"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bizadmin",
				Name:      "backend_duration_seconds",
				Help:      "REST backend call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		BackendRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "backend_retries_total",
				Help:      "Total number of retried backend reads",
			},
			[]string{"method"},
		),

		TableLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "table_loads_total",
				Help:      "Table cache loads by module and result",
			},
			[]string{"module", "result"},
		),
		TableMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "table_mutations_total",
				Help:      "Row mutations by module, operation and result",
			},
			[]string{"module", "op", "result"},
		),

		RelationLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "relation_lookups_total",
				Help:      "Relation option lookups by module and cache result",
			},
			[]string{"module", "cache"},
		),

		ConfigReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bizadmin",
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed config reloads",
			},
		),
		ConfigLastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bizadmin",
				Name:      "config_last_reload_timestamp",
				Help:      "Timestamp of last successful config reload",
			},
		),
	}

	reg.MustRegister(
		c.RequestsTotal, c.RequestDuration, c.RequestsInFlight,
		c.BackendRequests, c.BackendDuration, c.BackendRetries,
		c.TableLoads, c.TableMutations,
		c.RelationLookups,
		c.ConfigReloads, c.ConfigReloadErrors, c.ConfigLastReload,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry, or nil when it cannot gather.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// StatusClass buckets an HTTP status into "2xx", "4xx" and so on.
// Zero means the request never got a response.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return string(rune('0'+status/100)) + "xx"
}

// Result labels a boolean outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// NormalizePath reduces cardinality by collapsing record ids:
// /modules/inventory/42/edit -> /modules/inventory/:id/edit
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 4 && parts[1] == "modules" && parts[3] != "new" && parts[3] != "" {
		parts[3] = ":id"
	}
	if len(parts) >= 3 && parts[1] == "notices" && parts[2] != "" {
		parts[2] = ":id"
	}
	path = strings.Join(parts, "/")
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}
