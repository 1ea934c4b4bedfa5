package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "admin_ops"

var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPErrorsTotal counts rendered domain errors by code.
	HTTPErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Domain errors returned to callers by code.",
		},
		[]string{"route", "method", "code"},
	)

	// TransitionsTotal counts accepted lifecycle transitions.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Accepted lifecycle transitions by entity kind and target state.",
		},
		[]string{"kind", "to"},
	)

	// TransitionRejectionsTotal counts rejected lifecycle transitions.
	TransitionRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_rejections_total",
			Help:      "Rejected lifecycle transitions by entity kind and error code.",
		},
		[]string{"kind", "code"},
	)

	// StoreConflictsTotal counts optimistic concurrency conflicts.
	StoreConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Version conflicts on compare-and-swap writes by operation.",
		},
		[]string{"operation"},
	)

	// SLABreachesTotal counts emitted SLA breach events.
	SLABreachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_breaches_total",
			Help:      "SLA breach events emitted by entity kind.",
		},
		[]string{"kind"},
	)

	// AutotuneActionsTotal counts batch items by outcome.
	AutotuneActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autotune_actions_total",
			Help:      "Autotune adjustment actions by outcome.",
		},
		[]string{"outcome"},
	)

	// RollbacksTotal counts rollback attempts by result.
	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autotune_rollbacks_total",
			Help:      "Autotune rollback attempts by result.",
		},
		[]string{"result"},
	)

	// ScheduledTimers tracks pending deferred messages.
	ScheduledTimers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_timers",
			Help:      "Number of pending deferred messages in the scheduler.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPErrorsTotal,
		TransitionsTotal,
		TransitionRejectionsTotal,
		StoreConflictsTotal,
		SLABreachesTotal,
		AutotuneActionsTotal,
		RollbacksTotal,
		ScheduledTimers,
	)
}

// RecordRequest observes one served HTTP request.
func RecordRequest(route, method string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts a domain error rendered to the caller.
func RecordError(route, method, code string) {
	HTTPErrorsTotal.WithLabelValues(route, method, code).Inc()
}
