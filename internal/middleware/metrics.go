package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minbar_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ModerationVerdicts counts moderation cascade outcomes by the stage
	// that decided them. Stages: transcribe, heuristic, classifier.
	ModerationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minbar_moderation_verdicts_total",
		Help: "Total moderation verdicts by deciding stage and outcome",
	}, []string{"stage", "outcome"})

	// LikeToggles counts engagement ledger toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minbar_like_toggles_total",
		Help: "Total like toggles by resulting state (liked or unliked)",
	}, []string{"result"})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}
