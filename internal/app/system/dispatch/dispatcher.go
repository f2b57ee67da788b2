// Package dispatch creates alert records and fans notifications out to the
// ward's guardians.
//
// The failure policy is asymmetric on purpose: alert persistence must
// succeed before any fan-out is attempted, and is the one step allowed to
// fail the call; a silent emergency is unacceptable. Everything after the
// write degrades gracefully: a delivery failure for one guardian never
// blocks the others or rolls the alert back, and a ward with zero guardians
// still gets a recorded alert.
package dispatch

import (
	"context"
	"fmt"
	"time"

	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/metrics"
	"github.com/caresphere/caresphere/internal/app/system/notify"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EscalationFunc is the policy hook run for a critical alert nobody
// acknowledged within the escalation window.
type EscalationFunc func(ctx context.Context, alert models.Alert, elapsed time.Duration) error

// RaiseResult reports what a raise call did beyond the persisted alert.
type RaiseResult struct {
	Alert       models.Alert
	Notified    int
	NoGuardians bool
}

// Dispatcher owns alert creation, fan-out, and acknowledgement.
type Dispatcher struct {
	alerts   *alertstore.Store
	network  *carenet.Manager
	consents *consentstore.Store
	notifier notify.Notifier
	audit    *auditlog.Logger
	log      *zap.Logger

	// OnUnacknowledged is invoked by the escalation task. Defaults to
	// re-enqueueing notifications once; replace in bootstrap to integrate
	// an external escalation channel.
	OnUnacknowledged EscalationFunc
}

// New creates a Dispatcher. The default unacknowledged policy re-notifies
// the guardian set once.
func New(alerts *alertstore.Store, network *carenet.Manager, consents *consentstore.Store, notifier notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		alerts:   alerts,
		network:  network,
		consents: consents,
		notifier: notifier,
		audit:    audit,
		log:      logger,
	}
	d.OnUnacknowledged = d.renotify
	return d
}

// RaiseSOS records a ward-initiated emergency and notifies every active
// guardian. SOS overrides consent gating: an emergency reaches everyone who
// is connected, whatever they are normally allowed to see.
func (d *Dispatcher) RaiseSOS(ctx context.Context, wardID primitive.ObjectID, wardName string, loc *models.GeoPoint, reason string) (RaiseResult, error) {
	message := fmt.Sprintf("%s needs help", wardName)
	if reason != "" {
		message = fmt.Sprintf("%s needs help: %s", wardName, reason)
	}

	alert, err := d.alerts.Create(ctx, models.Alert{
		WardID:   wardID,
		Type:     models.AlertSOS,
		Severity: models.SeverityCritical,
		Message:  message,
		Reason:   reason,
		Location: loc,
	})
	if err != nil {
		// The one loud failure: an SOS that cannot be persisted must not
		// be swallowed.
		return RaiseResult{}, fmt.Errorf("persist sos alert: %w", err)
	}
	metrics.AlertsRaised.WithLabelValues(models.AlertSOS, models.SeverityCritical).Inc()

	res, err := d.fanOut(ctx, alert, "")
	d.audit.AlertRaised(ctx, wardID, alert.ID, alert.Type, alert.Severity, res.Notified)
	return res, err
}

// RaiseGeofenceAlert records a safe-zone breach and notifies the active
// guardians holding location_tracking consent.
func (d *Dispatcher) RaiseGeofenceAlert(ctx context.Context, wardID primitive.ObjectID, wardName string, loc models.GeoPoint, zoneID *primitive.ObjectID, zoneName string) (RaiseResult, error) {
	message := fmt.Sprintf("%s has left their safe zones", wardName)
	if zoneName != "" {
		message = fmt.Sprintf("%s has left %s", wardName, zoneName)
	}

	alert, err := d.alerts.Create(ctx, models.Alert{
		WardID:   wardID,
		Type:     models.AlertGeofence,
		Severity: models.SeverityWarning,
		Message:  message,
		Location: &loc,
		ZoneID:   zoneID,
	})
	if err != nil {
		return RaiseResult{}, fmt.Errorf("persist geofence alert: %w", err)
	}
	metrics.AlertsRaised.WithLabelValues(models.AlertGeofence, models.SeverityWarning).Inc()

	res, err := d.fanOut(ctx, alert, models.ConsentLocationTracking)
	d.audit.AlertRaised(ctx, wardID, alert.ID, alert.Type, alert.Severity, res.Notified)
	return res, err
}

// fanOut resolves the guardian set and enqueues one notification per
// eligible guardian. requiredConsent gates delivery when non-empty. Send
// errors are counted and logged but never returned: the alert is already
// the durable record, and the transport retries.
func (d *Dispatcher) fanOut(ctx context.Context, alert models.Alert, requiredConsent string) (RaiseResult, error) {
	res := RaiseResult{Alert: alert}

	guardianIDs, err := d.network.ActiveGuardianIDs(ctx, alert.WardID)
	if err != nil {
		d.log.Error("guardian resolution failed after alert persisted",
			zap.Error(err),
			zap.String("alert_id", alert.ID.Hex()),
			zap.String("ward_id", alert.WardID.Hex()))
		return res, nil
	}

	if len(guardianIDs) == 0 {
		res.NoGuardians = true
		if alert.Type == models.AlertSOS {
			metrics.SOSWithoutGuardians.Inc()
		}
		d.log.Warn("alert recorded with no active guardians to notify",
			zap.String("alert_id", alert.ID.Hex()),
			zap.String("ward_id", alert.WardID.Hex()),
			zap.String("type", alert.Type))
		return res, nil
	}

	for _, gid := range guardianIDs {
		if requiredConsent != "" {
			granted, err := d.consents.IsGranted(ctx, alert.WardID, gid, requiredConsent)
			if err != nil {
				d.log.Error("consent check failed during fan-out",
					zap.Error(err),
					zap.String("alert_id", alert.ID.Hex()),
					zap.String("guardian_id", gid.Hex()))
				metrics.Notifications.WithLabelValues("failed").Inc()
				continue
			}
			if !granted {
				metrics.Notifications.WithLabelValues("skipped_no_consent").Inc()
				continue
			}
		}

		payload := notify.Payload{
			MessageID: uuid.NewString(),
			TargetID:  gid.Hex(),
			Type:      alert.Type,
			Severity:  alert.Severity,
			WardID:    alert.WardID.Hex(),
			AlertID:   alert.ID.Hex(),
			Message:   alert.Message,
		}
		if err := d.notifier.Send(ctx, payload); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			d.log.Error("notification enqueue failed",
				zap.Error(err),
				zap.String("alert_id", alert.ID.Hex()),
				zap.String("guardian_id", gid.Hex()))
			continue
		}
		metrics.Notifications.WithLabelValues("ok").Inc()
		res.Notified++
	}

	return res, nil
}

// Acknowledge appends the guardian to the alert's responders. The append is
// idempotent; the first responder flips acknowledged and later responders
// (or retries) only add themselves. Requires an active relationship with
// the alert's ward.
func (d *Dispatcher) Acknowledge(ctx context.Context, alertID, guardianID primitive.ObjectID) (models.Alert, error) {
	alert, err := d.alerts.Get(ctx, alertID)
	if err != nil {
		return models.Alert{}, err
	}

	wardIDs, err := d.network.ActiveWardIDs(ctx, guardianID)
	if err != nil {
		return models.Alert{}, err
	}
	authorized := false
	for _, wid := range wardIDs {
		if wid == alert.WardID {
			authorized = true
			break
		}
	}
	// A guardian who already responded may always re-acknowledge, even if
	// the relationship was revoked mid-incident.
	if !authorized {
		for _, resp := range alert.Responders {
			if resp.GuardianID == guardianID {
				authorized = true
				break
			}
		}
	}
	if !authorized {
		return models.Alert{}, carenet.ErrNotAuthorized
	}

	return d.alerts.AppendResponder(ctx, alertID, guardianID, time.Now().UTC())
}

// ListRecent returns the newest alerts across every ward the guardian is
// actively connected to, deduplicated by id.
func (d *Dispatcher) ListRecent(ctx context.Context, guardianID primitive.ObjectID, limit int64, beforeKey string) ([]models.Alert, error) {
	wardIDs, err := d.network.ActiveWardIDs(ctx, guardianID)
	if err != nil {
		return nil, err
	}

	alerts, err := d.alerts.ListByWards(ctx, wardIDs, limit, beforeKey)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(alerts))
	out := alerts[:0]
	for _, a := range alerts {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// EscalateUnacknowledged runs the unacknowledged policy for critical alerts
// older than the window. Called by the periodic escalation task; each alert
// is escalated at most once (MarkEscalated picks a single winner).
func (d *Dispatcher) EscalateUnacknowledged(ctx context.Context, window time.Duration, batch int64) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	alerts, err := d.alerts.ListUnacknowledgedCritical(ctx, cutoff, batch)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, alert := range alerts {
		won, err := d.alerts.MarkEscalated(ctx, alert.ID, time.Now().UTC())
		if err != nil {
			return escalated, err
		}
		if !won {
			continue
		}
		elapsed := time.Since(alert.CreatedAt)
		if err := d.OnUnacknowledged(ctx, alert, elapsed); err != nil {
			d.log.Error("escalation policy failed",
				zap.Error(err),
				zap.String("alert_id", alert.ID.Hex()))
			continue
		}
		metrics.Escalations.Inc()
		d.audit.AlertEscalated(ctx, alert.WardID, alert.ID, elapsed.Round(time.Second).String())
		escalated++
	}
	return escalated, nil
}

// renotify is the default unacknowledged policy: push the alert to the
// guardian set one more time.
func (d *Dispatcher) renotify(ctx context.Context, alert models.Alert, elapsed time.Duration) error {
	d.log.Warn("critical alert unacknowledged, re-notifying guardians",
		zap.String("alert_id", alert.ID.Hex()),
		zap.String("ward_id", alert.WardID.Hex()),
		zap.Duration("elapsed", elapsed))

	_, err := d.fanOut(ctx, alert, "")
	return err
}
