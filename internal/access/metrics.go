// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package access

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for permission evaluation.
var (
	// checkDuration tracks the latency of permission checks.
	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rolegate_check_duration_seconds",
		Help:    "Histogram of permission check latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// decisionsTotal counts permission checks by outcome.
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rolegate_decisions_total",
		Help: "Total number of permission check decisions",
	}, []string{"outcome"})

	// validationWarnings counts warnings produced by role validation runs.
	validationWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolegate_validation_warnings_total",
		Help: "Total number of warnings produced by role validation",
	})
)

// recordDecision records metrics for a completed permission check.
func recordDecision(duration time.Duration, allowed bool) {
	checkDuration.Observe(duration.Seconds())

	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	decisionsTotal.WithLabelValues(outcome).Inc()
}

// recordValidation records the warning count of a validation run.
func recordValidation(warnings int) {
	validationWarnings.Add(float64(warnings))
}
