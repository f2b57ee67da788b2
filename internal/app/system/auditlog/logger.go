// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/caresphere/caresphere/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only),
// "off" (disabled).
type Config struct {
	// Network controls logging for relationship and consent events.
	Network string
	// Safety controls logging for safe-zone and alert events.
	Safety string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.WardID != nil {
		fields = append(fields, zap.String("ward_id", event.WardID.Hex()))
	}
	if event.GuardianID != nil {
		fields = append(fields, zap.String("guardian_id", event.GuardianID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryRelationship, audit.CategoryConsent:
		setting = l.config.Network
	case audit.CategorySafeZone, audit.CategoryAlert:
		setting = l.config.Safety
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Relationship events ---

// ConnectionRequested logs a new connection request.
func (l *Logger) ConnectionRequested(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID, relType string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryRelationship,
		EventType:  audit.EventConnectionRequested,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
		Details:    map[string]string{"relationship_type": relType},
	})
}

// ConnectionAccepted logs an accepted connection.
func (l *Logger) ConnectionAccepted(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryRelationship,
		EventType:  audit.EventConnectionAccepted,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
	})
}

// ConnectionRejected logs a rejected connection request.
func (l *Logger) ConnectionRejected(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryRelationship,
		EventType:  audit.EventConnectionRejected,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
	})
}

// ConnectionRevoked logs a revoked relationship.
func (l *Logger) ConnectionRevoked(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryRelationship,
		EventType:  audit.EventConnectionRevoked,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
		Details:    map[string]string{"reason": reason},
	})
}

// --- Consent events ---

// ConsentGranted logs an explicit consent grant.
func (l *Logger) ConsentGranted(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID, consentType string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryConsent,
		EventType:  audit.EventConsentGranted,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
		Details:    map[string]string{"consent_type": consentType},
	})
}

// ConsentRevoked logs an explicit consent revocation.
func (l *Logger) ConsentRevoked(ctx context.Context, r *http.Request, actorID, wardID, guardianID primitive.ObjectID, consentType string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryConsent,
		EventType:  audit.EventConsentRevoked,
		ActorID:    &actorID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
		Details:    map[string]string{"consent_type": consentType},
	})
}

// --- Safe-zone events ---

// SafeZoneChanged logs a safe-zone create/update/deactivate/delete.
func (l *Logger) SafeZoneChanged(ctx context.Context, r *http.Request, eventType string, actorID, wardID, zoneID primitive.ObjectID, zoneName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySafeZone,
		EventType: eventType,
		ActorID:   &actorID,
		WardID:    &wardID,
		IP:        getClientIP(r),
		Success:   true,
		Details: map[string]string{
			"zone_id":   zoneID.Hex(),
			"zone_name": zoneName,
		},
	})
}

// --- Alert events ---

// AlertRaised logs a created alert.
func (l *Logger) AlertRaised(ctx context.Context, wardID, alertID primitive.ObjectID, alertType, severity string, notified int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAlert,
		EventType: audit.EventAlertRaised,
		WardID:    &wardID,
		Success:   true,
		Details: map[string]string{
			"alert_id": alertID.Hex(),
			"type":     alertType,
			"severity": severity,
			"notified": strconv.Itoa(notified),
		},
	})
}

// AlertAcknowledged logs a guardian acknowledgement.
func (l *Logger) AlertAcknowledged(ctx context.Context, r *http.Request, guardianID, wardID, alertID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAlert,
		EventType:  audit.EventAlertAcknowledged,
		ActorID:    &guardianID,
		WardID:     &wardID,
		GuardianID: &guardianID,
		IP:         getClientIP(r),
		Success:    true,
		Details:    map[string]string{"alert_id": alertID.Hex()},
	})
}

// AlertEscalated logs an unacknowledged-alert escalation.
func (l *Logger) AlertEscalated(ctx context.Context, wardID, alertID primitive.ObjectID, elapsed string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAlert,
		EventType: audit.EventAlertEscalated,
		WardID:    &wardID,
		Success:   true,
		Details: map[string]string{
			"alert_id": alertID.Hex(),
			"elapsed":  elapsed,
		},
	})
}
