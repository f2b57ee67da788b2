// Package metrics registers the engine's Prometheus collectors. Exposed on
// /metrics via promhttp in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsRaised counts created alerts by type and severity.
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresphere_alerts_raised_total",
		Help: "Alerts persisted, by type (sos|geofence) and severity.",
	}, []string{"type", "severity"})

	// Notifications counts per-guardian notification sends by result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresphere_notifications_total",
		Help: "Per-guardian notification enqueue attempts, by result (ok|failed|skipped_no_consent).",
	}, []string{"result"})

	// GeofenceEvaluations counts evaluator outcomes.
	GeofenceEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caresphere_geofence_evaluations_total",
		Help: "Geofence evaluations, by outcome (inside|outside|outside_no_zones).",
	}, []string{"outcome"})

	// SOSWithoutGuardians counts SOS alerts recorded while the ward had no
	// active guardians. Alerting still succeeds; this is the degraded-path
	// signal operators page on.
	SOSWithoutGuardians = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caresphere_sos_without_guardians_total",
		Help: "SOS alerts recorded with zero active guardians to notify.",
	})

	// Escalations counts invocations of the unacknowledged-alert policy.
	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caresphere_alert_escalations_total",
		Help: "Times the unacknowledged-alert escalation policy ran for an alert.",
	})
)
