package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client-side metrics: how often remote fetches succeed, how often the
// fallback cache has to answer instead, and how the auth plumbing behaves.
var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_fetch_total",
			Help: "Remote fetches by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_fetch_duration_seconds",
			Help:    "Remote fetch latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	fallbackServes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_fallback_serves_total",
			Help: "Times a cached or seed value masked a fetch failure.",
		},
		[]string{"resource"},
	)

	unauthorizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_unauthorized_total",
		Help: "Backend 401 responses that forced a session clear.",
	})

	otpSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_otp_send_total",
			Help: "OTP send requests by channel.",
		},
		[]string{"channel"},
	)
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// Init registers the client metrics in the default registry.
func Init() {
	prometheus.MustRegister(fetchTotal, fetchDuration, fallbackServes, unauthorizedTotal, otpSendTotal)
}

// ObserveFetch records one remote fetch attempt.
func ObserveFetch(resource, outcome string, d time.Duration) {
	fetchTotal.WithLabelValues(resource, outcome).Inc()
	fetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// CountFallback records a fallback-masked failure for a resource.
func CountFallback(resource string) {
	fallbackServes.WithLabelValues(resource).Inc()
}

// CountUnauthorized records a forced session clear after a 401.
func CountUnauthorized() {
	unauthorizedTotal.Inc()
}

// CountOTPSend records an OTP send on the given channel.
func CountOTPSend(channel string) {
	otpSendTotal.WithLabelValues(channel).Inc()
}
