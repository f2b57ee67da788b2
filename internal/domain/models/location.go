// internal/domain/models/location.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationSample is one reported position for a ward.
//
// Samples arrive from the ward's device or the external location-capture
// collaborator; the engine never reads hardware sensors. History is kept in
// the location_samples collection with a TTL index so old samples age out.
type LocationSample struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WardID primitive.ObjectID `bson:"ward_id" json:"ward_id"`

	Lat            float64   `bson:"lat" json:"lat"`
	Lon            float64   `bson:"lon" json:"lon"`
	AccuracyMeters float64   `bson:"accuracy_meters,omitempty" json:"accuracy_meters,omitempty"`
	CapturedAt     time.Time `bson:"captured_at" json:"captured_at"`

	RecordedAt time.Time `bson:"recorded_at" json:"recorded_at"`
}

// Point returns the sample's coordinates.
func (s LocationSample) Point() GeoPoint {
	return GeoPoint{Lat: s.Lat, Lon: s.Lon}
}
