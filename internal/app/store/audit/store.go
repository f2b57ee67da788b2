// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryRelationship = "relationship"
	CategoryConsent      = "consent"
	CategorySafeZone     = "safe_zone"
	CategoryAlert        = "alert"
)

// Relationship event types
const (
	EventConnectionRequested = "connection_requested"
	EventConnectionAccepted  = "connection_accepted"
	EventConnectionRejected  = "connection_rejected"
	EventConnectionRevoked   = "connection_revoked"
)

// Consent event types
const (
	EventConsentGranted = "consent_granted"
	EventConsentRevoked = "consent_revoked"
)

// Safe-zone event types
const (
	EventSafeZoneCreated     = "safe_zone_created"
	EventSafeZoneUpdated     = "safe_zone_updated"
	EventSafeZoneDeactivated = "safe_zone_deactivated"
	EventSafeZoneDeleted     = "safe_zone_deleted"
)

// Alert event types
const (
	EventAlertRaised       = "alert_raised"
	EventAlertAcknowledged = "alert_acknowledged"
	EventAlertEscalated    = "alert_escalated"
)

// Event represents one audited action on the care network.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who and about whom
	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty"`    // who performed the action
	WardID     *primitive.ObjectID `bson:"ward_id,omitempty"`     // ward the action concerns
	GuardianID *primitive.ObjectID `bson:"guardian_id,omitempty"` // guardian the action concerns

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	WardID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := bson.M{}

	if filter.WardID != nil {
		query["ward_id"] = filter.WardID
	}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	cur, err := s.c.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
