// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExpired = "expired"
	OutcomeQuota   = "quota"
	OutcomeRatio   = "ratio"
)

var (
	OriginRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ygggate_origin_requests_total",
		Help: "Requests issued to the origin site by operation and outcome",
	}, []string{"operation", "outcome"})

	OriginRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ygggate_origin_request_duration_seconds",
		Help:    "Latency of origin requests by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	SessionRenewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ygggate_session_renewals_total",
		Help: "Session renewals triggered by expiry, by outcome",
	}, []string{"outcome"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ygggate_logins_total",
		Help: "Login protocol runs by strategy and outcome",
	}, []string{"strategy", "outcome"})

	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ygggate_downloads_total",
		Help: "Torrent downloads by outcome",
	}, []string{"outcome"})

	RateLimitInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ygggate_ratelimit_in_flight",
		Help: "Origin requests currently holding a rate limiter permit",
	})
)
