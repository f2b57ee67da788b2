// internal/domain/models/alert.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert types.
const (
	AlertSOS      = "sos"
	AlertGeofence = "geofence"
)

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AlertResponder is one guardian acknowledgement of an alert.
type AlertResponder struct {
	GuardianID  primitive.ObjectID `bson:"guardian_id" json:"guardian_id"`
	RespondedAt time.Time          `bson:"responded_at" json:"responded_at"`
}

// Alert is one emergency (SOS) or geofence-breach event.
//
// Alerts are never deleted; they form the emergency audit record. The only
// mutation after creation is appending to Responders, and Acknowledged holds
// the invariant acknowledged == len(responders) > 0 (it never reverts).
type Alert struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WardID primitive.ObjectID `bson:"ward_id" json:"ward_id"`

	Type     string `bson:"type" json:"type"`         // sos | geofence
	Severity string `bson:"severity" json:"severity"` // warning | critical
	Message  string `bson:"message" json:"message"`
	Reason   string `bson:"reason,omitempty" json:"reason,omitempty"`

	Location *GeoPoint           `bson:"location,omitempty" json:"location,omitempty"`
	ZoneID   *primitive.ObjectID `bson:"zone_id,omitempty" json:"zone_id,omitempty"`

	Acknowledged bool             `bson:"acknowledged" json:"acknowledged"`
	Responders   []AlertResponder `bson:"responders" json:"responders"`

	// EscalatedAt is set once by the escalation task when the alert stayed
	// unacknowledged past the configured window.
	EscalatedAt *time.Time `bson:"escalated_at,omitempty" json:"escalated_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	// CreatedKey is CreatedAt rendered as a fixed-width sortable string.
	// It exists so alert history can use keyset cursor pagination the same
	// way *_ci fields support name paging elsewhere.
	CreatedKey string `bson:"created_key" json:"-"`
}

// AlertSortKeyFormat renders times as fixed-width UTC strings whose
// lexicographic order matches chronological order.
const AlertSortKeyFormat = "2006-01-02T15:04:05.000000000Z"

// SortKey returns the fixed-width pagination key for time t.
func SortKey(t time.Time) string {
	return t.UTC().Format(AlertSortKeyFormat)
}
