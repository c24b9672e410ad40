// Package metrics exposes shellgeist runtime metrics through Prometheus.
// Every engine owns its own registry so several engines can live in one
// process.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mfulz/shellgeist/result"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnknownCommand is the label used for dispatches of unregistered names.
const UnknownCommand = "unknown"

// Collector bundles the engine metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	clients    prometheus.Counter
}

// New creates a Collector. activeSessions is sampled on every scrape.
func New(activeSessions func() float64) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shellgeist_dispatches_total",
				Help: "Total number of dispatched command lines",
			},
			[]string{"command", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shellgeist_dispatch_duration_seconds",
				Help:    "Duration of command handler executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		clients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellgeist_daemon_clients_total",
			Help: "Total number of accepted daemon clients",
		}),
	}
	c.registry.MustRegister(c.dispatches, c.duration, c.clients)
	if activeSessions != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "shellgeist_active_sessions",
			Help: "Number of live sessions",
		}, activeSessions))
	}
	return c
}

// ObserveDispatch records one dispatch.
func (c *Collector) ObserveDispatch(command string, code result.Code, d time.Duration) {
	if c == nil {
		return
	}
	if command == "" {
		command = UnknownCommand
	}
	c.dispatches.WithLabelValues(command, code.String()).Inc()
	c.duration.WithLabelValues(command).Observe(d.Seconds())
}

// ClientAccepted records an accepted daemon client.
func (c *Collector) ClientAccepted() {
	if c == nil {
		return
	}
	c.clients.Inc()
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves /metrics and /healthz.
func Handler(c *Collector) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return r
}
