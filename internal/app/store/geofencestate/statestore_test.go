package geofencestate_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	statestore "github.com/caresphere/caresphere/internal/app/store/geofencestate"
	"github.com/caresphere/caresphere/internal/testutil"
)

func TestStore_Transition_FirstObservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()

	_, found, err := store.Get(ctx, wardID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("expected no state before first transition")
	}

	// First observation "outside" counts as a transition (alert-worthy).
	changed, err := store.Transition(ctx, wardID, false, nil)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !changed {
		t.Error("expected first outside observation to count as a transition")
	}

	st, found, err := store.Get(ctx, wardID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected state to exist")
	}
	if st.CurrentlyInside {
		t.Error("expected state to record outside")
	}
}

func TestStore_Transition_FirstInsideIsNotAlertWorthy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	zoneID := primitive.NewObjectID()

	changed, err := store.Transition(ctx, wardID, true, &zoneID)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if changed {
		t.Error("expected first inside observation to report no transition")
	}

	st, found, err := store.Get(ctx, wardID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || !st.CurrentlyInside {
		t.Error("expected state to record inside")
	}
	if st.SinceZoneID == nil || *st.SinceZoneID != zoneID {
		t.Error("expected containing zone to be recorded")
	}
}

func TestStore_Transition_FlipWinsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wardID := primitive.NewObjectID()
	zoneID := primitive.NewObjectID()

	if _, err := store.Transition(ctx, wardID, true, &zoneID); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// inside -> outside flips exactly once.
	changed, err := store.Transition(ctx, wardID, false, nil)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !changed {
		t.Error("expected inside->outside to transition")
	}

	// Repeated outside samples are not transitions.
	changed, err = store.Transition(ctx, wardID, false, nil)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if changed {
		t.Error("expected repeated outside sample to report no transition")
	}

	// Returning inside flips again.
	changed, err = store.Transition(ctx, wardID, true, &zoneID)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !changed {
		t.Error("expected outside->inside to transition")
	}
}
