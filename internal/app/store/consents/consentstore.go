// internal/app/store/consents/consentstore.go
package consentstore

import (
	"context"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultConsentTypes is the set seeded when a relationship activates.
// manage_safe_zones is deliberately not in the default set; the ward grants
// it explicitly.
var DefaultConsentTypes = []string{
	models.ConsentLocationTracking,
	models.ConsentActivityMonitoring,
	models.ConsentReminderManagement,
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("consent_records")}
}

// Grant upserts the consent record for (ward, guardian, type) to granted and
// appends a history entry. Granting an already-granted consent is a no-op so
// retried calls (including re-seeding after a partial activation failure)
// never duplicate history.
func (s *Store) Grant(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType, note string) error {
	now := time.Now().UTC()
	entry := models.ConsentEntry{Status: models.ConsentGranted, At: now, Note: note}

	// Flip an existing non-granted record.
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"ward_id":      wardID,
			"guardian_id":  guardianID,
			"consent_type": consentType,
			"is_granted":   false,
		},
		bson.M{
			"$set":  bson.M{"is_granted": true, "granted_at": now},
			"$push": bson.M{"history": entry},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Either no record exists or it is already granted. Try to create one;
	// the unique index makes a concurrent create safe.
	rec := models.ConsentRecord{
		ID:          primitive.NewObjectID(),
		WardID:      wardID,
		GuardianID:  guardianID,
		ConsentType: consentType,
		IsGranted:   true,
		GrantedAt:   &now,
		History:     []models.ConsentEntry{entry},
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			// Record exists and is already granted: idempotent no-op.
			return nil
		}
		return err
	}
	return nil
}

// Revoke flips the record to revoked and appends a history entry. A missing
// record is a no-op, not an error, so RevokeAll stays safely retryable.
func (s *Store) Revoke(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType, note string) error {
	now := time.Now().UTC()
	entry := models.ConsentEntry{Status: models.ConsentRevoked, At: now, Note: note}

	_, err := s.c.UpdateOne(ctx,
		bson.M{
			"ward_id":      wardID,
			"guardian_id":  guardianID,
			"consent_type": consentType,
			"is_granted":   true,
		},
		bson.M{
			"$set":  bson.M{"is_granted": false, "revoked_at": now},
			"$push": bson.M{"history": entry},
		},
	)
	return err
}

// RevokeAll revokes every consent for the pair. Each individual revoke is
// idempotent, so a partial failure is safe to retry in full, which is how
// relationship revocation achieves its all-or-retry contract without
// cross-document transactions.
func (s *Store) RevokeAll(ctx context.Context, wardID, guardianID primitive.ObjectID, note string) error {
	types, err := s.grantedTypes(ctx, wardID, guardianID)
	if err != nil {
		return err
	}
	for _, ct := range types {
		if err := s.Revoke(ctx, wardID, guardianID, ct, note); err != nil {
			return err
		}
	}
	return nil
}

// ListGranted returns the currently granted consent types for the pair.
// This is the authorization check every component calls before exposing ward
// data to a guardian.
func (s *Store) ListGranted(ctx context.Context, wardID, guardianID primitive.ObjectID) ([]string, error) {
	return s.grantedTypes(ctx, wardID, guardianID)
}

func (s *Store) grantedTypes(ctx context.Context, wardID, guardianID primitive.ObjectID) ([]string, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"ward_id": wardID, "guardian_id": guardianID, "is_granted": true},
		options.Find().SetProjection(bson.M{"consent_type": 1}).SetSort(bson.D{{Key: "consent_type", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	types := []string{}
	for cur.Next(ctx) {
		var row struct {
			ConsentType string `bson:"consent_type"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		types = append(types, row.ConsentType)
	}
	return types, cur.Err()
}

// IsGranted reports whether one specific consent type is currently granted.
func (s *Store) IsGranted(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"ward_id":      wardID,
		"guardian_id":  guardianID,
		"consent_type": consentType,
		"is_granted":   true,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForPair returns every consent record for the pair, including revoked
// ones, with full history. Used by the consent API so wards can review the
// audit trail.
func (s *Store) ListForPair(ctx context.Context, wardID, guardianID primitive.ObjectID) ([]models.ConsentRecord, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"ward_id": wardID, "guardian_id": guardianID},
		options.Find().SetSort(bson.D{{Key: "consent_type", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.ConsentRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
