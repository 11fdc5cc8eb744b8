// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthDecisions counts terminal authorizer outcomes by verdict
	// ("allow" or one of the rejection reasons).
	AuthDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idgate_authorizations_total",
		Help: "Authorizer verdicts by outcome.",
	}, []string{"outcome"})

	// JWKSFetches counts key set fetches by result.
	JWKSFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idgate_jwks_fetches_total",
		Help: "JWKS fetches performed by the key resolver.",
	}, []string{"result"})

	// SagaStepDuration observes per-step latency of provisioning and
	// teardown sagas.
	SagaStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idgate_saga_step_duration_seconds",
		Help:    "Duration of individual saga steps.",
		Buckets: prometheus.DefBuckets,
	}, []string{"saga", "step", "result"})
)
