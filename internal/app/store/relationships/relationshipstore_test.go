package relationshipstore_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/caresphere/caresphere/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	rel, err := store.Create(ctx, wardID, guardianID, guardianID, "family", "grandmother")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if rel.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if rel.Status != models.RelationshipPending {
		t.Errorf("expected status 'pending', got %q", rel.Status)
	}
	if rel.InitiatorID != guardianID {
		t.Error("expected initiator to be recorded")
	}
	if rel.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_RejectsDuplicatePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	if _, err := store.Create(ctx, wardID, guardianID, guardianID, "", ""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := store.Create(ctx, wardID, guardianID, wardID, "", "")
	if err != relationshipstore.ErrRequestPending {
		t.Errorf("expected ErrRequestPending, got %v", err)
	}
}

func TestStore_Create_RejectsActivePair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	rel, err := store.Create(ctx, wardID, guardianID, guardianID, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Activate(ctx, rel.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	_, err = store.Create(ctx, wardID, guardianID, guardianID, "", "")
	if err != relationshipstore.ErrAlreadyConnected {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestStore_Create_AllowsReRequestAfterRevocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()

	rel, err := store.Create(ctx, wardID, guardianID, guardianID, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Terminate(ctx, rel.ID, "changed mind", time.Now().UTC()); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}

	// A revoked pair may be re-requested; a fresh document preserves history.
	again, err := store.Create(ctx, wardID, guardianID, wardID, "", "")
	if err != nil {
		t.Fatalf("re-request after revocation failed: %v", err)
	}
	if again.ID == rel.ID {
		t.Error("expected re-request to create a new document")
	}
}

func TestStore_Activate_TransitionsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rel, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	activated, transitioned, err := store.Activate(ctx, rel.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !transitioned {
		t.Error("expected first Activate to transition")
	}
	if activated.Status != models.RelationshipActive {
		t.Errorf("expected status 'active', got %q", activated.Status)
	}
	if activated.ActivatedAt == nil {
		t.Error("expected ActivatedAt to be set")
	}

	// Retried activation is a no-op success.
	_, transitioned, err = store.Activate(ctx, rel.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("retried Activate failed: %v", err)
	}
	if transitioned {
		t.Error("expected retried Activate to report no transition")
	}
}

func TestStore_Activate_RevokedRowFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rel, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Terminate(ctx, rel.ID, "", time.Now().UTC()); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}

	_, _, err = store.Activate(ctx, rel.ID, time.Now().UTC())
	if err != relationshipstore.ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

func TestStore_Terminate_ClearsPermissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	guardianID := primitive.NewObjectID()
	rel, err := store.Create(ctx, wardID, guardianID, guardianID, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Activate(ctx, rel.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := store.SetPermissions(ctx, wardID, guardianID, []string{models.ConsentLocationTracking}); err != nil {
		t.Fatalf("SetPermissions failed: %v", err)
	}

	revoked, transitioned, err := store.Terminate(ctx, rel.ID, "no longer needed", time.Now().UTC())
	if err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	if !transitioned {
		t.Error("expected Terminate to transition")
	}
	if revoked.Status != models.RelationshipRevoked {
		t.Errorf("expected status 'revoked', got %q", revoked.Status)
	}
	if revoked.RevokeReason != "no longer needed" {
		t.Errorf("expected revoke reason to be kept, got %q", revoked.RevokeReason)
	}
	if len(revoked.Permissions) != 0 {
		t.Errorf("expected permission cache to be cleared, got %v", revoked.Permissions)
	}
}

func TestStore_Terminate_RestrictedFromLosesToAccept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rel, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Activate(ctx, rel.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	// A reject (pending-only terminate) must not tear down an accepted row.
	_, _, err = store.Terminate(ctx, rel.ID, "rejected", time.Now().UTC(), models.RelationshipPending)
	if err != relationshipstore.ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

func TestStore_ActivePeers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	g1 := primitive.NewObjectID()
	g2 := primitive.NewObjectID()
	g3 := primitive.NewObjectID()

	fixtures.CreateRelationship(ctx, wardID, g1, models.RelationshipActive)
	fixtures.CreateRelationship(ctx, wardID, g2, models.RelationshipActive)
	fixtures.CreateRelationship(ctx, wardID, g3, models.RelationshipRevoked)

	guardians, err := store.ActiveGuardianIDs(ctx, wardID)
	if err != nil {
		t.Fatalf("ActiveGuardianIDs failed: %v", err)
	}
	if len(guardians) != 2 {
		t.Fatalf("expected 2 active guardians, got %d", len(guardians))
	}

	wards, err := store.ActiveWardIDs(ctx, g1)
	if err != nil {
		t.Fatalf("ActiveWardIDs failed: %v", err)
	}
	if len(wards) != 1 || wards[0] != wardID {
		t.Errorf("expected [%s], got %v", wardID.Hex(), wards)
	}

	active, err := store.HasActive(ctx, wardID, g3)
	if err != nil {
		t.Fatalf("HasActive failed: %v", err)
	}
	if active {
		t.Error("expected revoked pair to report not active")
	}
}

func TestStore_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := relationshipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	fixtures.CreateRelationship(ctx, wardID, primitive.NewObjectID(), models.RelationshipActive)
	fixtures.CreateRelationship(ctx, wardID, primitive.NewObjectID(), models.RelationshipPending)

	active, err := store.ListByUser(ctx, wardID, models.RoleWard, models.RelationshipActive)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("expected 1 active relationship, got %d", len(active))
	}

	pending, err := store.ListByUser(ctx, wardID, models.RoleWard, models.RelationshipPending)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending relationship, got %d", len(pending))
	}
}
