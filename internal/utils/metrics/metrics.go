package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsTotal counts login outcomes: success, invalid_credentials,
	// second_factor_required, second_factor_invalid, challenge_required,
	// challenge_invalid, upstream_error.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_login_attempts_total",
		Help: "The total number of admin login attempts by outcome",
	}, []string{"outcome"})

	// SessionVerificationsTotal counts bearer token verifications.
	SessionVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_session_verifications_total",
		Help: "The total number of session verifications by outcome",
	}, []string{"outcome"})

	// EnrollmentsTotal counts two-factor enrollment steps.
	EnrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_2fa_enrollments_total",
		Help: "The total number of two-factor enrollment operations by step and outcome",
	}, []string{"step", "outcome"})

	// SessionsSweptTotal counts expired sessions removed by the janitor.
	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_sessions_swept_total",
		Help: "The total number of expired sessions deleted by the janitor",
	})
)
