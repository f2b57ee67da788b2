// internal/app/store/geofencestate/statestore.go
package geofencestate

import (
	"context"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ward_geofence_state")}
}

// Get returns the ward's containment state. The bool result is false when no
// state has been recorded yet (no sample has ever been evaluated).
func (s *Store) Get(ctx context.Context, wardID primitive.ObjectID) (models.WardGeofenceState, bool, error) {
	var st models.WardGeofenceState
	err := s.c.FindOne(ctx, bson.M{"ward_id": wardID}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return models.WardGeofenceState{}, false, nil
	}
	if err != nil {
		return models.WardGeofenceState{}, false, err
	}
	return st, true, nil
}

// Transition compare-and-sets the ward's containment state to inside /
// sinceZoneID. The bool result reports whether this call changed the stored
// value: concurrent evaluators racing on the same flip produce exactly one
// winner, which is what makes breach alerting transition-based rather than
// per-sample.
//
// The first state ever recorded for a ward also counts as a transition when
// it is "outside": a ward whose very first sample breaches (including the
// zero-zones fallback) must still alert.
func (s *Store) Transition(ctx context.Context, wardID primitive.ObjectID, inside bool, sinceZoneID *primitive.ObjectID) (bool, error) {
	now := time.Now().UTC()

	// CAS: flip only if the stored value differs.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"ward_id": wardID, "currently_inside": bson.M{"$ne": inside}},
		bson.M{"$set": bson.M{
			"currently_inside": inside,
			"since_zone_id":    sinceZoneID,
			"updated_at":       now,
		}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Nothing matched: either the state already equals inside, or no
	// document exists yet. Create the initial document if needed; the
	// unique index on ward_id resolves races to a single winner.
	st := models.WardGeofenceState{
		ID:              primitive.NewObjectID(),
		WardID:          wardID,
		CurrentlyInside: inside,
		SinceZoneID:     sinceZoneID,
		UpdatedAt:       now,
	}
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		if wafflemongo.IsDup(err) {
			// State already recorded with the same value: no transition.
			return false, nil
		}
		return false, err
	}
	// First observation. Only an initial "outside" is alert-worthy.
	return !inside, nil
}
