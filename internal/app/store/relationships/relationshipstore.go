// internal/app/store/relationships/relationshipstore.go
package relationshipstore

// Terminology: Care Network Identifiers
//   - WardID / ward_id: the monitored person's user ObjectID
//   - GuardianID / guardian_id: an authorized supporter's user ObjectID
//   - InitiatorID / initiator_id: whichever of the two created the request

import (
	"context"
	"errors"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrAlreadyConnected is returned when a request targets a pair that
	// already has an active relationship.
	ErrAlreadyConnected = errors.New("ward and guardian are already connected")

	// ErrRequestPending is returned when a request targets a pair that
	// already has a pending request.
	ErrRequestPending = errors.New("a connection request is already pending for this pair")

	// ErrNotPending is returned when accept/reject hits a row that is no
	// longer pending (and is not already in the requested terminal state).
	ErrNotPending = errors.New("relationship is not pending")

	// ErrNotFound is returned when the relationship row does not exist.
	ErrNotFound = errors.New("relationship not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("relationships")}
}

// Create inserts a new pending relationship after confirming no non-revoked
// row exists for the pair. The partial unique index on
// (ward_id, guardian_id, status in {pending, active}) closes the race between
// the existence check and the insert; a duplicate-key error is re-classified
// against the row that won.
func (s *Store) Create(ctx context.Context, wardID, guardianID, initiatorID primitive.ObjectID, relType, detail string) (models.Relationship, error) {
	if err := s.checkNoCurrent(ctx, wardID, guardianID); err != nil {
		return models.Relationship{}, err
	}

	rel := models.Relationship{
		ID:               primitive.NewObjectID(),
		WardID:           wardID,
		GuardianID:       guardianID,
		InitiatorID:      initiatorID,
		RelationshipType: relType,
		Detail:           detail,
		Status:           models.RelationshipPending,
		CreatedAt:        time.Now().UTC(),
	}

	if _, err := s.c.InsertOne(ctx, rel); err != nil {
		if wafflemongo.IsDup(err) {
			// Lost the race; report whichever state beat us.
			if chkErr := s.checkNoCurrent(ctx, wardID, guardianID); chkErr != nil {
				return models.Relationship{}, chkErr
			}
			return models.Relationship{}, ErrRequestPending
		}
		return models.Relationship{}, err
	}
	return rel, nil
}

func (s *Store) checkNoCurrent(ctx context.Context, wardID, guardianID primitive.ObjectID) error {
	var existing models.Relationship
	err := s.c.FindOne(ctx, bson.M{
		"ward_id":     wardID,
		"guardian_id": guardianID,
		"status":      bson.M{"$ne": models.RelationshipRevoked},
	}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Status == models.RelationshipActive {
		return ErrAlreadyConnected
	}
	return ErrRequestPending
}

// Get loads one relationship by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Relationship, error) {
	var rel models.Relationship
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rel)
	if err == mongo.ErrNoDocuments {
		return models.Relationship{}, ErrNotFound
	}
	if err != nil {
		return models.Relationship{}, err
	}
	return rel, nil
}

// Activate transitions a pending row to active with a compare-and-set on
// status. The bool result reports whether this call performed the
// transition: false means the row was already active (idempotent retry), in
// which case no side effects should be repeated by the caller.
func (s *Store) Activate(ctx context.Context, id primitive.ObjectID, at time.Time) (models.Relationship, bool, error) {
	var rel models.Relationship
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RelationshipPending},
		bson.M{"$set": bson.M{
			"status":       models.RelationshipActive,
			"activated_at": at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rel)
	if err == nil {
		return rel, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Relationship{}, false, err
	}

	// CAS missed: classify against the current row.
	rel, getErr := s.Get(ctx, id)
	if getErr != nil {
		return models.Relationship{}, false, getErr
	}
	if rel.Status == models.RelationshipActive {
		return rel, false, nil
	}
	return models.Relationship{}, false, ErrNotPending
}

// Terminate transitions a row to revoked with a compare-and-set on status.
// The from list restricts which statuses may be revoked (default: pending
// and active); Reject passes pending only so a request that was concurrently
// accepted cannot be torn down by a stale rejection. Like Activate, the bool
// result is false when the row was already revoked so a retried call stays a
// no-op.
func (s *Store) Terminate(ctx context.Context, id primitive.ObjectID, reason string, at time.Time, from ...string) (models.Relationship, bool, error) {
	if len(from) == 0 {
		from = []string{models.RelationshipPending, models.RelationshipActive}
	}

	var rel models.Relationship
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{
			"status":        models.RelationshipRevoked,
			"revoked_at":    at,
			"revoke_reason": reason,
			"permissions":   []string{},
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rel)
	if err == nil {
		return rel, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Relationship{}, false, err
	}

	rel, getErr := s.Get(ctx, id)
	if getErr != nil {
		return models.Relationship{}, false, getErr
	}
	if rel.Status == models.RelationshipRevoked {
		// Already revoked: idempotent no-op.
		return rel, false, nil
	}
	// Row is in a status the from list excludes (a restricted Terminate
	// lost the race to an accept).
	return models.Relationship{}, false, ErrNotPending
}

// MarkConsentsSeeded records that the default consent set has been granted
// for this relationship. Called only after every grant succeeded, so a crash
// mid-seed leaves the flag clear and the next Accept finishes the seeding.
func (s *Store) MarkConsentsSeeded(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"consents_seeded": true}},
	)
	return err
}

// ListByUser returns the relationships in the given status where the user
// participates under the given role, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, role, status string) ([]models.Relationship, error) {
	field := "guardian_id"
	if role == models.RoleWard {
		field = "ward_id"
	}
	cur, err := s.c.Find(ctx,
		bson.M{field: userID, "status": status},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rels []models.Relationship
	if err := cur.All(ctx, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// ActiveGuardianIDs returns the guardian ids with an active relationship to
// the ward. This is the guardian-resolution path for alert fan-out.
func (s *Store) ActiveGuardianIDs(ctx context.Context, wardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.activePeers(ctx, bson.M{"ward_id": wardID, "status": models.RelationshipActive}, "guardian_id")
}

// ActiveWardIDs returns the ward ids the guardian is actively connected to.
func (s *Store) ActiveWardIDs(ctx context.Context, guardianID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.activePeers(ctx, bson.M{"guardian_id": guardianID, "status": models.RelationshipActive}, "ward_id")
}

func (s *Store) activePeers(ctx context.Context, filter bson.M, field string) ([]primitive.ObjectID, error) {
	ids, err := s.c.Distinct(ctx, field, filter)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}

// HasActive reports whether the pair currently has an active relationship.
func (s *Store) HasActive(ctx context.Context, wardID, guardianID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"ward_id":     wardID,
		"guardian_id": guardianID,
		"status":      models.RelationshipActive,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPermissions refreshes the denormalized permission cache on the pair's
// current non-revoked row. Missing rows are ignored: the cache follows the
// authoritative consent records, never the other way around.
func (s *Store) SetPermissions(ctx context.Context, wardID, guardianID primitive.ObjectID, granted []string) error {
	if granted == nil {
		granted = []string{}
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{
			"ward_id":     wardID,
			"guardian_id": guardianID,
			"status":      bson.M{"$ne": models.RelationshipRevoked},
		},
		bson.M{"$set": bson.M{"permissions": granted}},
	)
	return err
}
