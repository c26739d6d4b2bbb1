// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpost_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkpost_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CommentOperations counts comment operations by kind and outcome.
	CommentOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpost_comment_operations_total",
		Help: "Total number of comment operations",
	}, []string{"operation", "outcome"})

	// LikeOperations counts like ledger operations by kind, identity kind and outcome.
	LikeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpost_like_operations_total",
		Help: "Total number of like and unlike operations",
	}, []string{"operation", "identity", "outcome"})

	// ModerationRejections counts content rejected by the moderation gate per locale.
	ModerationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpost_moderation_rejections_total",
		Help: "Total number of comments rejected by moderation",
	}, []string{"locale"})

	// LikeCounterRepairs counts posts whose likes_count was corrected by reconciliation.
	LikeCounterRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkpost_like_counter_repairs_total",
		Help: "Total number of post like counters repaired by reconciliation",
	})
)

// Outcome labels used across operation counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// OutcomeOf classifies err for the operation counters. Errors carrying a
// business rule are rejections; anything else is a failure.
func OutcomeOf(err error, isRejection func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeOK
	case isRejection != nil && isRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
