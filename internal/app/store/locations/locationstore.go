// internal/app/store/locations/locationstore.go
package locationstore

import (
	"context"
	"errors"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNoSamples = errors.New("no location samples recorded for ward")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("location_samples")}
}

// Record appends one sample to the ward's location history. History is
// append-only; retention is handled by the TTL index on recorded_at plus the
// prune task as a backup.
func (s *Store) Record(ctx context.Context, sample models.LocationSample) (models.LocationSample, error) {
	if sample.ID.IsZero() {
		sample.ID = primitive.NewObjectID()
	}
	sample.RecordedAt = time.Now().UTC()
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = sample.RecordedAt
	}
	if _, err := s.c.InsertOne(ctx, sample); err != nil {
		return models.LocationSample{}, err
	}
	return sample, nil
}

// Latest returns the most recently captured sample for the ward.
func (s *Store) Latest(ctx context.Context, wardID primitive.ObjectID) (models.LocationSample, error) {
	var sample models.LocationSample
	err := s.c.FindOne(ctx,
		bson.M{"ward_id": wardID},
		options.FindOne().SetSort(bson.D{{Key: "captured_at", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&sample)
	if err == mongo.ErrNoDocuments {
		return models.LocationSample{}, ErrNoSamples
	}
	if err != nil {
		return models.LocationSample{}, err
	}
	return sample, nil
}

// History returns up to limit samples for the ward, newest first.
func (s *Store) History(ctx context.Context, wardID primitive.ObjectID, limit int64) ([]models.LocationSample, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"ward_id": wardID},
		options.Find().
			SetSort(bson.D{{Key: "captured_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var samples []models.LocationSample
	if err := cur.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// PruneOlderThan deletes samples recorded before the cutoff. Backup for the
// TTL index when the server's TTL monitor is delayed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"recorded_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
