// Package metrics provides Prometheus metrics for the API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// relay
	RelayCallsTotal   *prometheus.CounterVec
	RelayCallDuration *prometheus.HistogramVec

	// send guard
	SendsRejectedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all metrics on reg. A nil reg gets a fresh registry, which
// keeps tests independent of the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	m := &Metrics{gatherer: reg}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "n8nchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "n8nchat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.RelayCallsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "n8nchat_relay_calls_total",
			Help: "Total number of webhook relay calls by outcome",
		},
		[]string{"variant", "outcome"},
	)

	m.RelayCallDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "n8nchat_relay_call_duration_seconds",
			Help:    "Duration of webhook relay calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"variant"},
	)

	m.SendsRejectedTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "n8nchat_sends_rejected_total",
			Help: "Chat sends rejected because another send for the conversation was in flight",
		},
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRelay implements relay.Observer.
func (m *Metrics) ObserveRelay(_ context.Context, evt relay.Event) {
	m.RelayCallsTotal.WithLabelValues(string(evt.Variant), string(evt.Reason)).Inc()
	if evt.Reason != relay.ReasonNotConfigured {
		m.RelayCallDuration.WithLabelValues(string(evt.Variant)).Observe(evt.Latency.Seconds())
	}
}

// GinMiddleware records request count and latency by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
