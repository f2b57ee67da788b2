// internal/domain/models/consent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Consent types recognised by the engine.
const (
	ConsentLocationTracking   = "location_tracking"
	ConsentActivityMonitoring = "activity_monitoring"
	ConsentReminderManagement = "reminder_management"
	ConsentManageSafeZones    = "manage_safe_zones"
)

// Consent history statuses.
const (
	ConsentGranted = "granted"
	ConsentRevoked = "revoked"
)

// ConsentEntry is one entry in a consent record's append-only history.
type ConsentEntry struct {
	Status string    `bson:"status" json:"status"` // granted | revoked
	At     time.Time `bson:"at" json:"at"`
	Note   string    `bson:"note,omitempty" json:"note,omitempty"`
}

// ConsentRecord is one row per (ward, guardian, consent type).
//
// History is never truncated; IsGranted always mirrors the most recent
// history entry. Guardians can never write to this collection themselves:
// mutations come only from the ward or from relationship lifecycle cascades.
type ConsentRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WardID      primitive.ObjectID `bson:"ward_id" json:"ward_id"`
	GuardianID  primitive.ObjectID `bson:"guardian_id" json:"guardian_id"`
	ConsentType string             `bson:"consent_type" json:"consent_type"`

	IsGranted bool       `bson:"is_granted" json:"is_granted"`
	GrantedAt *time.Time `bson:"granted_at,omitempty" json:"granted_at,omitempty"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`

	History []ConsentEntry `bson:"history" json:"history"`
}
