package http

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	roundTripperPrometheusMetrics sync.Once

	roundTripperRequestsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "http",
			Name:      "round_tripper_requests_duration_seconds",
			Help:      "Amount of time spent per outgoing HTTP request, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"name", "code", "method"})
)

// NewMetricsRoundTripper creates an adapter for http.RoundTripper that
// records the duration of requests, such as those used to push metrics
// to a Prometheus Pushgateway.
func NewMetricsRoundTripper(base http.RoundTripper, name string) http.RoundTripper {
	roundTripperPrometheusMetrics.Do(func() {
		prometheus.MustRegister(roundTripperRequestsDurationSeconds)
	})

	return promhttp.InstrumentRoundTripperDuration(
		roundTripperRequestsDurationSeconds.MustCurryWith(prometheus.Labels{"name": name}),
		base)
}
