package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PastesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "hashpaste", Name: "pastes_created_total", Help: "Number of pastes stored."},
	)
	PasteLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hashpaste", Name: "paste_lookups_total", Help: "Paste reads by endpoint and result."},
		[]string{"endpoint", "result"},
	)
	IDCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "hashpaste", Name: "id_collisions_total", Help: "Generated ids that were already taken."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hashpaste", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hashpaste", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "hashpaste", Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(PastesCreated)
	reg.MustRegister(PasteLookups)
	reg.MustRegister(IDCollisions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(RequestDuration)
}
