package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics owns a private registry so each application instance, including
// the ones built by tests, registers its collectors exactly once.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(activeConversations func() int) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beerapi",
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beerapi",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by status code and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "beerapi",
			Name:      "active_conversations",
			Help:      "Long-running conversations currently registered.",
		}, func() float64 { return float64(activeConversations()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// instrument records the status code, method and latency of every request.
func (app *applicationDependencies) instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(app.metrics.duration,
		promhttp.InstrumentHandlerCounter(app.metrics.requests, next))
}
