// Package metrics holds the Prometheus collectors for the leave lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LeaveSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_submissions_total",
			Help: "Leave requests submitted, by leave type",
		},
		[]string{"leave_type"},
	)

	LeaveTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_transitions_total",
			Help: "Leave status transitions, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	NotificationsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_notifications_dispatched_total",
			Help: "Notifications dispatched, by event type and whether the row was newly created",
		},
		[]string{"event_type", "created"},
	)

	DeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_notification_delivery_failures_total",
			Help: "Downstream delivery channel failures",
		},
		[]string{"channel"},
	)

	SideEffectRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_side_effect_retries_total",
			Help: "Background retries of workflow side effects, by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	StatsDriftTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_stats_drift_total",
			Help: "Counters corrected by a full recompute, by counter",
		},
		[]string{"counter"},
	)

	WorkflowActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leave_workflow_action_duration_seconds",
			Help:    "Duration of workflow actions including inline side effects",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)
