package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts handled API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_approval_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "expense_approval_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Workflow metrics
var (
	// ExpensesSubmittedTotal counts expenses routed to their first approver
	ExpensesSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expense_approval_expenses_submitted_total",
			Help: "Total number of submitted expenses",
		},
	)

	// DecisionsTotal counts committed approval decisions by outcome reason
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_approval_decisions_total",
			Help: "Total number of committed approval decisions",
		},
		[]string{"decision", "reason"},
	)

	// ExpensesFinalizedTotal counts expenses reaching a terminal status
	ExpensesFinalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_approval_expenses_finalized_total",
			Help: "Total number of expenses that reached Approved or Rejected",
		},
		[]string{"status", "auto_approved"},
	)

	// DecisionConflictsTotal counts decision commits retried after a concurrent write
	DecisionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expense_approval_decision_conflicts_total",
			Help: "Total number of decision commits that lost an optimistic concurrency race",
		},
	)
)

// Event dispatch metrics
var (
	// EventsDispatchedTotal counts domain events delivered to handlers
	EventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_approval_events_dispatched_total",
			Help: "Total number of dispatched domain events",
		},
		[]string{"type"},
	)
)
