package alertstore_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/caresphere/caresphere/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alert, err := store.Create(ctx, models.Alert{
		WardID:   primitive.NewObjectID(),
		Type:     models.AlertSOS,
		Severity: models.SeverityCritical,
		Message:  "emergency assistance requested",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if alert.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if alert.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if alert.CreatedKey != models.SortKey(alert.CreatedAt) {
		t.Errorf("expected CreatedKey to match CreatedAt, got %q", alert.CreatedKey)
	}
	if alert.Acknowledged {
		t.Error("expected new alert to be unacknowledged")
	}
	if alert.Responders == nil {
		t.Error("expected responders to be an empty slice, not nil")
	}
}

func TestStore_AppendResponder_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alert, err := store.Create(ctx, models.Alert{
		WardID:   primitive.NewObjectID(),
		Type:     models.AlertSOS,
		Severity: models.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	guardianID := primitive.NewObjectID()

	acked, err := store.AppendResponder(ctx, alert.ID, guardianID, time.Now().UTC())
	if err != nil {
		t.Fatalf("AppendResponder failed: %v", err)
	}
	if !acked.Acknowledged {
		t.Error("expected alert to be acknowledged after first responder")
	}
	if len(acked.Responders) != 1 {
		t.Fatalf("expected 1 responder, got %d", len(acked.Responders))
	}

	// Retried acknowledgement appends nothing.
	again, err := store.AppendResponder(ctx, alert.ID, guardianID, time.Now().UTC())
	if err != nil {
		t.Fatalf("retried AppendResponder failed: %v", err)
	}
	if len(again.Responders) != 1 {
		t.Errorf("expected duplicate ack to be a no-op, got %d responders", len(again.Responders))
	}

	// A second guardian appends alongside the first.
	second, err := store.AppendResponder(ctx, alert.ID, primitive.NewObjectID(), time.Now().UTC())
	if err != nil {
		t.Fatalf("second AppendResponder failed: %v", err)
	}
	if len(second.Responders) != 2 {
		t.Errorf("expected 2 responders, got %d", len(second.Responders))
	}
}

func TestStore_AppendResponder_MissingAlert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.AppendResponder(ctx, primitive.NewObjectID(), primitive.NewObjectID(), time.Now().UTC())
	if err != alertstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListByWards_CursorPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward1 := primitive.NewObjectID()
	ward2 := primitive.NewObjectID()
	other := primitive.NewObjectID()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		fixtures.CreateAlert(ctx, ward1, models.AlertGeofence, models.SeverityWarning, base.Add(time.Duration(i)*time.Minute))
	}
	fixtures.CreateAlert(ctx, ward2, models.AlertSOS, models.SeverityCritical, base.Add(10*time.Minute))
	fixtures.CreateAlert(ctx, other, models.AlertSOS, models.SeverityCritical, base.Add(11*time.Minute))

	page, err := store.ListByWards(ctx, []primitive.ObjectID{ward1, ward2}, 4, "")
	if err != nil {
		t.Fatalf("ListByWards failed: %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("expected 4 alerts, got %d", len(page))
	}
	if page[0].WardID != ward2 {
		t.Error("expected the newest alert first")
	}
	for _, a := range page {
		if a.WardID == other {
			t.Error("expected no alerts from unrelated wards")
		}
	}

	// Next page resumes strictly before the last key of the first page.
	rest, err := store.ListByWards(ctx, []primitive.ObjectID{ward1, ward2}, 10, page[len(page)-1].CreatedKey)
	if err != nil {
		t.Fatalf("ListByWards page 2 failed: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining alerts, got %d", len(rest))
	}
	for _, a := range rest {
		if a.CreatedKey >= page[len(page)-1].CreatedKey {
			t.Error("expected second page to be strictly older than the cursor")
		}
	}
}

func TestStore_ListByWards_EmptyWardSet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alerts, err := store.ListByWards(ctx, nil, 10, "")
	if err != nil {
		t.Fatalf("ListByWards failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected empty result, got %d", len(alerts))
	}
}

func TestStore_EscalationQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := alertstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	now := time.Now().UTC()

	stale := fixtures.CreateAlert(ctx, wardID, models.AlertSOS, models.SeverityCritical, now.Add(-10*time.Minute))
	fresh := fixtures.CreateAlert(ctx, wardID, models.AlertSOS, models.SeverityCritical, now.Add(-1*time.Minute))
	fixtures.CreateAlert(ctx, wardID, models.AlertGeofence, models.SeverityWarning, now.Add(-10*time.Minute))

	acked := fixtures.CreateAlert(ctx, wardID, models.AlertSOS, models.SeverityCritical, now.Add(-10*time.Minute))
	if _, err := store.AppendResponder(ctx, acked.ID, primitive.NewObjectID(), now); err != nil {
		t.Fatalf("AppendResponder failed: %v", err)
	}

	due, err := store.ListUnacknowledgedCritical(ctx, now.Add(-5*time.Minute), 100)
	if err != nil {
		t.Fatalf("ListUnacknowledgedCritical failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != stale.ID {
		t.Fatalf("expected only the stale unacknowledged critical alert, got %d", len(due))
	}
	_ = fresh

	// Exactly one concurrent escalation run wins.
	won, err := store.MarkEscalated(ctx, stale.ID, now)
	if err != nil {
		t.Fatalf("MarkEscalated failed: %v", err)
	}
	if !won {
		t.Error("expected first MarkEscalated to win")
	}
	won, err = store.MarkEscalated(ctx, stale.ID, now)
	if err != nil {
		t.Fatalf("retried MarkEscalated failed: %v", err)
	}
	if won {
		t.Error("expected retried MarkEscalated to lose")
	}

	// Escalated alerts leave the queue.
	due, err = store.ListUnacknowledgedCritical(ctx, now.Add(-5*time.Minute), 100)
	if err != nil {
		t.Fatalf("ListUnacknowledgedCritical failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected no alerts due after escalation, got %d", len(due))
	}
}
