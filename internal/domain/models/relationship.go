// internal/domain/models/relationship.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relationship statuses.
const (
	RelationshipPending = "pending"
	RelationshipActive  = "active"
	RelationshipRevoked = "revoked"
)

// Roles for the two sides of a relationship.
const (
	RoleWard     = "ward"
	RoleGuardian = "guardian"
)

// Relationship is the authoritative pairing between a ward and a guardian.
//
// At most one non-revoked document may exist per (ward_id, guardian_id);
// a revoked pair may be re-requested, which creates a new document so the
// history of prior connections is preserved.
type Relationship struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WardID      primitive.ObjectID `bson:"ward_id" json:"ward_id"`
	GuardianID  primitive.ObjectID `bson:"guardian_id" json:"guardian_id"`
	InitiatorID primitive.ObjectID `bson:"initiator_id" json:"initiator_id"`

	// RelationshipType is a free-form label such as "family" or "professional".
	RelationshipType string `bson:"relationship_type,omitempty" json:"relationship_type,omitempty"`
	Detail           string `bson:"detail,omitempty" json:"detail,omitempty"`

	Status string `bson:"status" json:"status"` // pending | active | revoked

	// Permissions is a denormalized cache of the consent types currently
	// granted for this pair. The consent_records collection is authoritative;
	// this field exists for fast reads and is refreshed by the care-network
	// manager on every grant/revoke.
	Permissions []string `bson:"permissions,omitempty" json:"permissions,omitempty"`

	// ConsentsSeeded is set once the default consent set has been granted
	// after activation. A retried Accept must not re-run the seed loop: a
	// consent the ward revoked after activation stays revoked.
	ConsentsSeeded bool `bson:"consents_seeded,omitempty" json:"-"`

	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	ActivatedAt  *time.Time `bson:"activated_at,omitempty" json:"activated_at,omitempty"`
	RevokedAt    *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
	RevokeReason string     `bson:"revoke_reason,omitempty" json:"revoke_reason,omitempty"`
}
