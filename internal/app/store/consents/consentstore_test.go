package consentstore_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/caresphere/caresphere/internal/testutil"
)

func TestStore_Grant_CreatesRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, "granted by ward")
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	granted, err := store.IsGranted(ctx, wardID, guardianID, models.ConsentLocationTracking)
	if err != nil {
		t.Fatalf("IsGranted failed: %v", err)
	}
	if !granted {
		t.Error("expected consent to be granted")
	}

	recs, err := store.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListForPair failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if len(recs[0].History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(recs[0].History))
	}
	if recs[0].History[0].Status != models.ConsentGranted {
		t.Errorf("expected history entry 'granted', got %q", recs[0].History[0].Status)
	}
	if recs[0].GrantedAt == nil {
		t.Error("expected GrantedAt to be set")
	}
}

func TestStore_Grant_AlreadyGrantedIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	if err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, "first"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, "retry"); err != nil {
		t.Fatalf("retried Grant failed: %v", err)
	}

	recs, err := store.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListForPair failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if len(recs[0].History) != 1 {
		t.Errorf("expected retried grant to append no history, got %d entries", len(recs[0].History))
	}
}

func TestStore_Revoke_AppendsHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	if err := store.Grant(ctx, wardID, guardianID, models.ConsentActivityMonitoring, ""); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := store.Revoke(ctx, wardID, guardianID, models.ConsentActivityMonitoring, "revoked by ward"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	granted, err := store.IsGranted(ctx, wardID, guardianID, models.ConsentActivityMonitoring)
	if err != nil {
		t.Fatalf("IsGranted failed: %v", err)
	}
	if granted {
		t.Error("expected consent to be revoked")
	}

	recs, err := store.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListForPair failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if len(recs[0].History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(recs[0].History))
	}
	if recs[0].History[1].Status != models.ConsentRevoked {
		t.Errorf("expected last history entry 'revoked', got %q", recs[0].History[1].Status)
	}
	if recs[0].RevokedAt == nil {
		t.Error("expected RevokedAt to be set")
	}
}

func TestStore_Revoke_MissingRecordIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Revoke(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.ConsentLocationTracking, "")
	if err != nil {
		t.Errorf("expected revoke of missing record to succeed, got %v", err)
	}
}

func TestStore_RegrantAfterRevoke(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	if err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, ""); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := store.Revoke(ctx, wardID, guardianID, models.ConsentLocationTracking, ""); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, "re-granted"); err != nil {
		t.Fatalf("re-Grant failed: %v", err)
	}

	recs, err := store.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListForPair failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected history to stay on one record, got %d", len(recs))
	}
	if !recs[0].IsGranted {
		t.Error("expected record to be granted again")
	}
	if len(recs[0].History) != 3 {
		t.Errorf("expected 3 history entries, got %d", len(recs[0].History))
	}
}

func TestStore_RevokeAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	for _, ct := range consentstore.DefaultConsentTypes {
		if err := store.Grant(ctx, wardID, guardianID, ct, "seeded"); err != nil {
			t.Fatalf("Grant %s failed: %v", ct, err)
		}
	}

	if err := store.RevokeAll(ctx, wardID, guardianID, "relationship revoked"); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}

	granted, err := store.ListGranted(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListGranted failed: %v", err)
	}
	if len(granted) != 0 {
		t.Errorf("expected no granted consents, got %v", granted)
	}

	// History survives the cascade.
	recs, err := store.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListForPair failed: %v", err)
	}
	if len(recs) != len(consentstore.DefaultConsentTypes) {
		t.Fatalf("expected %d records, got %d", len(consentstore.DefaultConsentTypes), len(recs))
	}
	for _, rec := range recs {
		if len(rec.History) != 2 {
			t.Errorf("consent %s: expected 2 history entries, got %d", rec.ConsentType, len(rec.History))
		}
	}
}

func TestStore_ListGranted_Sorted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := consentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	if err := store.Grant(ctx, wardID, guardianID, models.ConsentReminderManagement, ""); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := store.Grant(ctx, wardID, guardianID, models.ConsentLocationTracking, ""); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	granted, err := store.ListGranted(ctx, wardID, guardianID)
	if err != nil {
		t.Fatalf("ListGranted failed: %v", err)
	}
	want := []string{models.ConsentLocationTracking, models.ConsentReminderManagement}
	if len(granted) != len(want) {
		t.Fatalf("expected %v, got %v", want, granted)
	}
	for i := range want {
		if granted[i] != want[i] {
			t.Errorf("expected %v, got %v", want, granted)
			break
		}
	}
}
