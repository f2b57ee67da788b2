// internal/domain/models/geofencestate.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WardGeofenceState is the persisted containment state for one ward.
//
// Exactly one document per ward. The geofence evaluator flips
// CurrentlyInside with a compare-and-set on the previous value, and only the
// winner of an inside→outside flip raises a breach alert. That is what keeps
// duplicate and out-of-order samples from producing duplicate alerts for the
// same continuous excursion.
type WardGeofenceState struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WardID          primitive.ObjectID  `bson:"ward_id" json:"ward_id"`
	CurrentlyInside bool                `bson:"currently_inside" json:"currently_inside"`
	SinceZoneID     *primitive.ObjectID `bson:"since_zone_id,omitempty" json:"since_zone_id,omitempty"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
