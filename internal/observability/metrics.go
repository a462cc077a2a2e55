// Package observability holds the service-level Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dashboardBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard_service",
		Subsystem: "aggregator",
		Name:      "summaries_total",
		Help:      "Number of dashboard summaries requested, labeled by outcome.",
	}, []string{"outcome"})

	dashboardBuildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard_service",
		Subsystem: "aggregator",
		Name:      "build_duration_seconds",
		Help:      "Time spent fetching and assembling a dashboard summary.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"outcome"})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_service",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})

	streakUpdatedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_service",
		Subsystem: "streaks",
		Name:      "last_streak_update_timestamp_seconds",
		Help:      "Unix timestamp of the most recent streak projection update.",
	})
)

func init() {
	prometheus.MustRegister(dashboardBuilds, dashboardBuildDuration, activityPersistGauge, streakUpdatedGauge)
}

// ObserveDashboardBuild records one summary build.
func ObserveDashboardBuild(outcome string, elapsed time.Duration) {
	dashboardBuilds.WithLabelValues(outcome).Inc()
	dashboardBuildDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// DashboardBuilds exposes the build counter for the given outcome (tests read it via testutil).
func DashboardBuilds(outcome string) prometheus.Counter {
	return dashboardBuilds.WithLabelValues(outcome)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordStreakUpdated updates the streak projection watermark gauge.
func RecordStreakUpdated(ts time.Time) {
	if ts.IsZero() {
		return
	}
	streakUpdatedGauge.Set(float64(ts.Unix()))
}
