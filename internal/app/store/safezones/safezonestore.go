// internal/app/store/safezones/safezonestore.go
package safezonestore

import (
	"context"
	"errors"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("safe zone not found")
	ErrInvalidRadius = errors.New("radius must be a positive number of meters")

	// ErrDuplicateName means an active zone with the same folded name
	// already exists for the ward (unique partial index on ward_id+name_ci).
	ErrDuplicateName = errors.New("an active zone with this name already exists for the ward")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("safe_zones")}
}

// Create inserts a new active safe zone for the ward.
func (s *Store) Create(ctx context.Context, wardID, createdBy primitive.ObjectID, name string, center models.GeoPoint, radiusMeters float64) (models.SafeZone, error) {
	if radiusMeters <= 0 {
		return models.SafeZone{}, ErrInvalidRadius
	}

	now := time.Now().UTC()
	zone := models.SafeZone{
		ID:           primitive.NewObjectID(),
		WardID:       wardID,
		Name:         name,
		NameCI:       text.Fold(name),
		Center:       center,
		RadiusMeters: radiusMeters,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, zone); err != nil {
		if wafflemongo.IsDup(err) {
			return models.SafeZone{}, ErrDuplicateName
		}
		return models.SafeZone{}, err
	}
	return zone, nil
}

// Get loads one zone by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.SafeZone, error) {
	var zone models.SafeZone
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&zone)
	if err == mongo.ErrNoDocuments {
		return models.SafeZone{}, ErrNotFound
	}
	if err != nil {
		return models.SafeZone{}, err
	}
	return zone, nil
}

// Update edits the zone's name, center, and radius.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name string, center models.GeoPoint, radiusMeters float64) (models.SafeZone, error) {
	if radiusMeters <= 0 {
		return models.SafeZone{}, ErrInvalidRadius
	}

	var zone models.SafeZone
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"name":          name,
			"name_ci":       text.Fold(name),
			"center":        center,
			"radius_meters": radiusMeters,
			"updated_at":    time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&zone)
	if err == mongo.ErrNoDocuments {
		return models.SafeZone{}, ErrNotFound
	}
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.SafeZone{}, ErrDuplicateName
		}
		return models.SafeZone{}, err
	}
	return zone, nil
}

// SetActive flips the zone's active flag. Deactivation is the preferred
// alternative to deletion so historical alerts keep their zone context.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		// Re-activating can collide with a newer active zone of the same name.
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a zone. Callers should prefer SetActive(false).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByWard returns the ward's zones, optionally restricted to active ones,
// ordered by folded name.
func (s *Store) ListByWard(ctx context.Context, wardID primitive.ObjectID, activeOnly bool) ([]models.SafeZone, error) {
	filter := bson.M{"ward_id": wardID}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var zones []models.SafeZone
	if err := cur.All(ctx, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}
