package ratelimit

import "github.com/prometheus/client_golang/prometheus"

var (
	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_limiter_decisions_total",
			Help: "Upstream chat limiter decisions by outcome.",
		},
		[]string{"outcome"},
	)

	windowCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_limiter_window_requests",
			Help: "Upstream chat calls counted in the current quota window.",
		},
	)

	retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_upstream_retries_total",
			Help: "Retries of rate-limited upstream chat calls by reason.",
		},
		[]string{"reason"},
	)

	exhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_upstream_retries_exhausted_total",
			Help: "Chat calls that failed after every retry was spent.",
		},
	)
)

func init() {
	prometheus.MustRegister(decisions, windowCount, retries, exhausted)
}
