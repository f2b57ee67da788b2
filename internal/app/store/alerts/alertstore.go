// internal/app/store/alerts/alertstore.go
package alertstore

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

var ErrNotFound = errors.New("alert not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("alerts")}
}

// Create persists a new alert. Alerts are never deleted; they are the
// emergency record.
func (s *Store) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	alert.CreatedKey = models.SortKey(alert.CreatedAt)
	if alert.Responders == nil {
		alert.Responders = []models.AlertResponder{}
	}

	if _, err := s.c.InsertOne(ctx, alert); err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

// Get loads one alert by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Alert, error) {
	var alert models.Alert
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return models.Alert{}, ErrNotFound
	}
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

// AppendResponder records a guardian acknowledgement. The update filter
// excludes alerts already holding an entry for this guardian, so a retried
// acknowledgement appends nothing. Acknowledged is set on every append and
// responders are never removed, so it flips on the first responder and never
// reverts.
func (s *Store) AppendResponder(ctx context.Context, alertID, guardianID primitive.ObjectID, at time.Time) (models.Alert, error) {
	var alert models.Alert
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                    alertID,
			"responders.guardian_id": bson.M{"$ne": guardianID},
		},
		bson.M{
			"$set":  bson.M{"acknowledged": true},
			"$push": bson.M{"responders": models.AlertResponder{GuardianID: guardianID, RespondedAt: at}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&alert)
	if err == nil {
		return alert, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Alert{}, err
	}

	// Either the alert does not exist or this guardian already responded.
	return s.Get(ctx, alertID)
}

// ListByWards returns alerts for the given wards, newest first, up to limit,
// optionally windowed to alerts strictly older than the beforeKey cursor
// (a models.SortKey value).
func (s *Store) ListByWards(ctx context.Context, wardIDs []primitive.ObjectID, limit int64, beforeKey string) ([]models.Alert, error) {
	if len(wardIDs) == 0 {
		return []models.Alert{}, nil
	}

	filter := bson.M{"ward_id": bson.M{"$in": wardIDs}}
	if beforeKey != "" {
		filter["created_key"] = bson.M{"$lt": beforeKey}
	}

	cur, err := s.c.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_key", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var alerts []models.Alert
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListUnacknowledgedCritical returns critical alerts created before the
// cutoff that no guardian has acknowledged and that have not been escalated
// yet. Input to the escalation policy.
func (s *Store) ListUnacknowledgedCritical(ctx context.Context, cutoff time.Time, limit int64) ([]models.Alert, error) {
	cur, err := s.c.Find(ctx,
		bson.M{
			"severity":     models.SeverityCritical,
			"acknowledged": false,
			"escalated_at": bson.M{"$exists": false},
			"created_at":   bson.M{"$lt": cutoff},
		},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var alerts []models.Alert
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkEscalated stamps escalated_at once. The filter on the missing field
// makes concurrent escalation runs pick exactly one winner per alert.
func (s *Store) MarkEscalated(ctx context.Context, alertID primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": alertID, "escalated_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"escalated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
