// Package metrics exposes the Prometheus collectors of the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RefreshTotal counts refresh cycles by outcome (applied, stale, failed, discarded).
var RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "barberdash",
	Subsystem: "sync",
	Name:      "refresh_total",
	Help:      "Refresh cycles against the record store by outcome.",
}, []string{"outcome"})

// RefreshDuration observes how long a full refresh takes.
var RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "barberdash",
	Subsystem: "sync",
	Name:      "refresh_duration_seconds",
	Help:      "Duration of a full refresh cycle.",
	Buckets:   prometheus.DefBuckets,
})

// WriteFailures counts remote writes that failed, by operation.
var WriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "barberdash",
	Subsystem: "sync",
	Name:      "write_failures_total",
	Help:      "Remote record store writes that failed.",
}, []string{"operation"})

// Rollbacks counts optimistic changes undone after a failed write.
var Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "barberdash",
	Subsystem: "sync",
	Name:      "rollbacks_total",
	Help:      "Optimistic local changes rolled back after a failed write.",
}, []string{"operation"})

// SalesRecorded counts sales recorded through the dashboard.
var SalesRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "barberdash",
	Subsystem: "pos",
	Name:      "sales_recorded_total",
	Help:      "Sales recorded through the dashboard.",
})

// ReportsPublished counts closing reports by sink and outcome.
var ReportsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "barberdash",
	Subsystem: "reporting",
	Name:      "reports_published_total",
	Help:      "Closing reports published by sink and outcome.",
}, []string{"sink", "outcome"})
