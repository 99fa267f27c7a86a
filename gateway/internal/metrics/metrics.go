package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthRejectedTotal counts requests the edge filter refused, by reason.
	AuthRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_rejected_total",
			Help: "Total number of requests rejected by the auth filter, by reason.",
		},
		[]string{"reason"},
	)

	// AuthFailOpenTotal counts requests allowed through despite a
	// blacklist store failure. A non-zero rate is a security signal.
	AuthFailOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_auth_fail_open_total",
		Help: "Total number of requests allowed through after a revocation store error.",
	})

	// RateLimitedTotal counts requests answered 429.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter.",
	})

	// RateLimitFailOpenTotal counts requests allowed through despite a
	// rate limit store failure.
	RateLimitFailOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_rate_limit_fail_open_total",
		Help: "Total number of requests allowed through after a rate limit store error.",
	})
)
