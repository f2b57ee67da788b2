// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

locationRetention controls the TTL on location samples; alerts and consent
history are never expired.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, locationRetention time.Duration) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureRelationships(ctx, db); err != nil {
		problems = append(problems, "relationships: "+err.Error())
	}
	if err := ensureConsents(ctx, db); err != nil {
		problems = append(problems, "consent_records: "+err.Error())
	}
	if err := ensureSafeZones(ctx, db); err != nil {
		problems = append(problems, "safe_zones: "+err.Error())
	}
	if err := ensureLocationSamples(ctx, db, locationRetention); err != nil {
		problems = append(problems, "location_samples: "+err.Error())
	}
	if err := ensureAlerts(ctx, db); err != nil {
		problems = append(problems, "alerts: "+err.Error())
	}
	if err := ensureGeofenceState(ctx, db); err != nil {
		problems = append(problems, "ward_geofence_state: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, idxModels []mongo.IndexModel) error {
	var errs []string

	for _, m := range idxModels {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
			cur.Close(ctx)
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Name alignment: if the name differs, drop & recreate with
				// the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					continue
				}

				// Names aligned → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			if isOptionsConflictErr(err) {
				// A same-keys index snuck in under different options between
				// the list and the create. Treat as reusable; the next boot
				// reconciles it through the drop-and-recreate path above.
				zap.L().Warn("index options conflict, deferring reconcile to next start",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Error(err))
				continue
			}
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				continue
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("created_name", created),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Role segmentation (ward vs guardian listings)
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_role_id"),
		},
	})
}

func ensureRelationships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("relationships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// 1) At most one live (non-revoked) row per (ward, guardian) pair.
		//    Partial so revoked history rows never block a reconnect.
		{
			Keys: bson.D{{Key: "ward_id", Value: 1}, {Key: "guardian_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{
						models.RelationshipPending, models.RelationshipActive,
					}}}},
				}).
				SetName("uniq_rel_ward_guardian_live"),
		},
		// 2) A ward's connections by status (guardian resolution for fan-out)
		{
			Keys:    bson.D{{Key: "ward_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_rel_ward_status"),
		},
		// 3) A guardian's connections by status (alert feeds, dashboards)
		{
			Keys:    bson.D{{Key: "guardian_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_rel_guardian_status"),
		},
	})
}

func ensureConsents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("consent_records")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One record per (ward, guardian, consent type); grant/revoke flip
		// the record in place and append history.
		{
			Keys: bson.D{
				{Key: "ward_id", Value: 1},
				{Key: "guardian_id", Value: 1},
				{Key: "consent_type", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_consent_ward_guardian_type"),
		},
		// Granted-set reads for a pair
		{
			Keys: bson.D{
				{Key: "ward_id", Value: 1},
				{Key: "guardian_id", Value: 1},
				{Key: "is_granted", Value: 1},
			},
			Options: options.Index().SetName("idx_consent_pair_granted"),
		},
	})
}

func ensureSafeZones(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("safe_zones")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Evaluator load path: all active zones for a ward.
		{
			Keys:    bson.D{{Key: "ward_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_zones_ward_active"),
		},
		// No duplicate zone names among a ward's active zones
		// (case/diacritics-folded via name_ci). Deactivated zones keep their
		// name so alert history stays readable.
		{
			Keys: bson.D{{Key: "ward_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}).
				SetName("uniq_zones_ward_nameci_active"),
		},
	})
}

func ensureLocationSamples(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	c := db.Collection("location_samples")
	idx := []mongo.IndexModel{
		// Latest / history reads (latest-first)
		{
			Keys:    bson.D{{Key: "ward_id", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_locations_ward_recorded"),
		},
	}
	if retention > 0 {
		idx = append(idx, mongo.IndexModel{
			Keys: bson.D{{Key: "recorded_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(retention / time.Second)).
				SetName("idx_locations_recorded_ttl"),
		})
	}
	return ensureIndexSet(ctx, c, idx)
}

func ensureAlerts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("alerts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Guardian alert feed: newest-first keyset pagination over the
		// ward set (created_key is the fixed-width sortable creation stamp).
		{
			Keys: bson.D{
				{Key: "ward_id", Value: 1},
				{Key: "created_key", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_alerts_ward_createdkey_id"),
		},
		// Escalation scan: unacknowledged criticals past the window.
		{
			Keys: bson.D{
				{Key: "severity", Value: 1},
				{Key: "acknowledged", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_alerts_sev_ack_created"),
		},
	})
}

func ensureGeofenceState(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("ward_geofence_state")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One containment-state doc per ward; the unique index is what
		// resolves first-observation races to a single winner.
		{
			Keys:    bson.D{{Key: "ward_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_geostate_ward"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Category feeds (latest-first)
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_created"),
		},
		// Per-ward trail
		{
			Keys:    bson.D{{Key: "ward_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_ward_created"),
		},
	})
}
