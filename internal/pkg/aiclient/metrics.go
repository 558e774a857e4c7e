// internal/pkg/aiclient/metrics.go
package aiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_client_calls_total",
		Help: "External model calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_client_quota_retries_total",
		Help: "Retries triggered by quota errors.",
	}, []string{"operation"})

	paceWaitSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_client_pace_wait_seconds_total",
		Help: "Total seconds spent waiting for a pacing slot.",
	}, []string{"operation"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ai_client_call_duration_seconds",
		Help:    "Duration of individual backend calls.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"operation"})
)
