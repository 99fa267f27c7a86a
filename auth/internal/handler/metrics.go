package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_otp_verifications_total",
			Help: "Total number of OTP verification attempts by status.",
		},
		[]string{"status"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by status.",
		},
		[]string{"status"},
	)

	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_refreshes_total",
		Help: "Total number of successful token refreshes.",
	})

	logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_logouts_total",
		Help: "Total number of successful logouts.",
	})

	serviceTokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_service_tokens_issued_total",
			Help: "Total number of client_credentials token grants by status.",
		},
		[]string{"status"},
	)
)
