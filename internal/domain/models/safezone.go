// internal/domain/models/safezone.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// SafeZone is a named circular region considered safe for a ward.
//
// Zones are soft-deactivated rather than deleted so that historical alerts
// keep their zone context.
type SafeZone struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WardID primitive.ObjectID `bson:"ward_id" json:"ward_id"`

	Name         string   `bson:"name" json:"name"`
	NameCI       string   `bson:"name_ci" json:"name_ci"` // lowercase, diacritics-stripped
	Center       GeoPoint `bson:"center" json:"center"`
	RadiusMeters float64  `bson:"radius_meters" json:"radius_meters"`
	Active       bool     `bson:"active" json:"active"`

	// CreatedBy records who configured the zone: the ward themself or a
	// guardian holding manage_safe_zones consent.
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
