// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionTransitions counts successful connection lifecycle operations by
	// transition (sent, accepted, declined, cancelled, removed).
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobizaaa",
		Subsystem: "connections",
		Name:      "transitions_total",
		Help:      "Connection request lifecycle transitions.",
	}, []string{"transition"})

	// ConnectionRejections counts refused connection operations by error kind.
	ConnectionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobizaaa",
		Subsystem: "connections",
		Name:      "rejections_total",
		Help:      "Connection operations refused by the service.",
	}, []string{"operation", "kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobizaaa",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobizaaa",
		Subsystem: "auth",
		Name:      "otp_issued_total",
		Help:      "One-time login codes issued.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
