// Package monitoring holds the Prometheus collectors exposed on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationOutcomes counts lifecycle operations by operation and
	// outcome ("ok", "duplicate", "quota_exceeded", ...).
	RegistrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "registration_operations_total",
		Help:      "Registration lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})

	SpeakerBookings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "speaker_bookings_total",
		Help:      "Speaker bookings accepted.",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "membership",
		Name:      "notification_failures_total",
		Help:      "Notifications that could not be delivered, by channel.",
	}, []string{"channel"})

	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "membership",
		Name:      "event_lock_wait_seconds",
		Help:      "Time spent waiting for the per-event lock.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)
