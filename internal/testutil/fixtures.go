package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caresphere/caresphere/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a profile mirror with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	user := models.User{
		ID:          primitive.NewObjectID(),
		DisplayName: name,
		Email:       email,
		Role:        role,
		UpdatedAt:   time.Now().UTC(),
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateWard creates a test ward profile.
func (f *Fixtures) CreateWard(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleWard)
}

// CreateGuardian creates a test guardian profile.
func (f *Fixtures) CreateGuardian(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleGuardian)
}

// CreateRelationship inserts a relationship document in the given status.
// ActivatedAt is set for active relationships so the document looks the way
// the store would have written it.
func (f *Fixtures) CreateRelationship(ctx context.Context, wardID, guardianID primitive.ObjectID, status string) models.Relationship {
	f.t.Helper()

	now := time.Now().UTC()
	rel := models.Relationship{
		ID:          primitive.NewObjectID(),
		WardID:      wardID,
		GuardianID:  guardianID,
		InitiatorID: guardianID,
		Status:      status,
		CreatedAt:   now,
	}
	if status == models.RelationshipActive {
		rel.ActivatedAt = &now
	}
	if status == models.RelationshipRevoked {
		rel.RevokedAt = &now
	}

	_, err := f.db.Collection("relationships").InsertOne(ctx, rel)
	if err != nil {
		f.t.Fatalf("failed to create test relationship: %v", err)
	}

	return rel
}

// CreateConsent inserts a consent record with a single history entry.
func (f *Fixtures) CreateConsent(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType string, granted bool) models.ConsentRecord {
	f.t.Helper()

	now := time.Now().UTC()
	status := models.ConsentRevoked
	if granted {
		status = models.ConsentGranted
	}
	rec := models.ConsentRecord{
		ID:          primitive.NewObjectID(),
		WardID:      wardID,
		GuardianID:  guardianID,
		ConsentType: consentType,
		IsGranted:   granted,
		History:     []models.ConsentEntry{{Status: status, At: now}},
	}
	if granted {
		rec.GrantedAt = &now
	} else {
		rec.RevokedAt = &now
	}

	_, err := f.db.Collection("consent_records").InsertOne(ctx, rec)
	if err != nil {
		f.t.Fatalf("failed to create test consent record: %v", err)
	}

	return rec
}

// CreateSafeZone inserts an active safe zone created by the ward.
func (f *Fixtures) CreateSafeZone(ctx context.Context, wardID primitive.ObjectID, name string, lat, lon, radiusMeters float64) models.SafeZone {
	f.t.Helper()

	now := time.Now().UTC()
	zone := models.SafeZone{
		ID:           primitive.NewObjectID(),
		WardID:       wardID,
		Name:         name,
		NameCI:       text.Fold(name),
		Center:       models.GeoPoint{Lat: lat, Lon: lon},
		RadiusMeters: radiusMeters,
		Active:       true,
		CreatedBy:    wardID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("safe_zones").InsertOne(ctx, zone)
	if err != nil {
		f.t.Fatalf("failed to create test safe zone: %v", err)
	}

	return zone
}

// CreateAlert inserts an unacknowledged alert created at the given time.
func (f *Fixtures) CreateAlert(ctx context.Context, wardID primitive.ObjectID, alertType, severity string, createdAt time.Time) models.Alert {
	f.t.Helper()

	alert := models.Alert{
		ID:         primitive.NewObjectID(),
		WardID:     wardID,
		Type:       alertType,
		Severity:   severity,
		Message:    "test alert",
		Responders: []models.AlertResponder{},
		CreatedAt:  createdAt.UTC(),
		CreatedKey: models.SortKey(createdAt),
	}

	_, err := f.db.Collection("alerts").InsertOne(ctx, alert)
	if err != nil {
		f.t.Fatalf("failed to create test alert: %v", err)
	}

	return alert
}
