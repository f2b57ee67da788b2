package connections_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/caresphere/caresphere/internal/app/features/connections"
	"github.com/caresphere/caresphere/internal/app/store/audit"
	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/caresphere/caresphere/internal/testutil"
	"github.com/go-chi/chi/v5"
)

type connEnv struct {
	db       *mongo.Database
	fixtures *testutil.Fixtures
	network  *carenet.Manager
	consents *consentstore.Store
	router   chi.Router
}

func newConnEnv(t *testing.T) *connEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	consents := consentstore.New(db)
	network := carenet.New(
		relationshipstore.New(db),
		consents,
		userstore.New(db),
		logger,
	)
	auditor := auditlog.New(audit.New(db), logger, auditlog.Config{Network: "db", Safety: "db"})
	h := connections.NewHandler(network, auditor, logger)

	return &connEnv{
		db:       db,
		fixtures: testutil.NewFixtures(t, db),
		network:  network,
		consents: consents,
		router:   connections.Routes(h),
	}
}

func (e *connEnv) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRequest_GuardianInitiates(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"target_id":"`+ward.ID.Hex()+`"}`)
	req = testutil.WithUser(req, testutil.AsUser(guardian))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"status":"pending"`)

	var rel models.Relationship
	if err := json.Unmarshal(rec.Body.Bytes(), &rel); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rel.WardID != ward.ID || rel.GuardianID != guardian.ID {
		t.Errorf("pair: got ward=%s guardian=%s", rel.WardID.Hex(), rel.GuardianID.Hex())
	}
	if rel.InitiatorID != guardian.ID {
		t.Errorf("initiator: got %s, want guardian", rel.InitiatorID.Hex())
	}
}

func TestRequest_UnauthenticatedRejected(t *testing.T) {
	env := newConnEnv(t)

	req := testutil.NewJSONRequest(http.MethodPost, "/", `{"target_id":"abc"}`)
	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestRequest_UnknownTarget(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"target_id":"64b000000000000000000000"}`)
	req = testutil.WithUser(req, testutil.AsUser(guardian))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRequest_SameRoleRejected(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g1 := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	g2 := env.fixtures.CreateGuardian(ctx, "Noa", "noa@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"target_id":"`+g2.ID.Hex()+`"}`)
	req = testutil.WithUser(req, testutil.AsUser(g1))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestRequest_DuplicatePendingConflicts(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipPending)

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"target_id":"`+ward.ID.Hex()+`"}`)
	req = testutil.WithUser(req, testutil.AsUser(guardian))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestAccept_TargetAccepts(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	rel := env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipPending)

	req := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/accept", testutil.AsUser(ward))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"active"`)

	// Acceptance seeds the baseline consent set.
	granted, err := env.consents.ListGranted(ctx, ward.ID, guardian.ID)
	if err != nil {
		t.Fatalf("granted consents: %v", err)
	}
	if len(granted) != len(consentstore.DefaultConsentTypes) {
		t.Errorf("seeded consents: got %d, want %d", len(granted), len(consentstore.DefaultConsentTypes))
	}
}

func TestAccept_InitiatorCannotAccept(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	rel := env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipPending)

	req := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/accept", testutil.AsUser(guardian))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestAccept_UnknownRelationship(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")

	req := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/64b000000000000000000000/accept", testutil.AsUser(ward))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestReject_DecidedRequestConflicts(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	rel := env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipPending)

	first := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/reject", testutil.AsUser(ward))
	env.serve(first).AssertStatus(t, http.StatusOK)

	again := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/reject", testutil.AsUser(ward))
	env.serve(again).AssertStatus(t, http.StatusConflict)
}

func TestRevoke_EitherSideWithReason(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	rel := env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipActive)

	req := testutil.NewJSONRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/revoke", `{"reason":"moved away"}`)
	req = testutil.WithUser(req, testutil.AsUser(guardian))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"revoked"`)
	rec.AssertContains(t, "moved away")
}

func TestRevoke_StrangerForbidden(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	stranger := env.fixtures.CreateGuardian(ctx, "Sam", "sam@example.com")
	rel := env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipActive)

	req := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+rel.ID.Hex()+"/revoke", testutil.AsUser(stranger))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestList_FiltersByStatus(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	g1 := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	g2 := env.fixtures.CreateGuardian(ctx, "Noa", "noa@example.com")
	env.fixtures.CreateRelationship(ctx, ward.ID, g1.ID, models.RelationshipActive)
	env.fixtures.CreateRelationship(ctx, ward.ID, g2.ID, models.RelationshipPending)

	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/?status=pending", testutil.AsUser(ward))
	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Connections []carenet.Connection `json:"connections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Connections) != 1 {
		t.Fatalf("connections: got %d, want 1", len(resp.Connections))
	}
	if resp.Connections[0].CounterpartID != g2.ID {
		t.Errorf("counterpart: got %s, want %s", resp.Connections[0].CounterpartID.Hex(), g2.ID.Hex())
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	env := newConnEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")

	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/?status=bogus", testutil.AsUser(ward))
	env.serve(req).AssertStatus(t, http.StatusBadRequest)
}
