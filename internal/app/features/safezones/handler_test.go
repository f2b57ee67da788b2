package safezones_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/caresphere/caresphere/internal/app/features/safezones"
	"github.com/caresphere/caresphere/internal/app/store/audit"
	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	safezonestore "github.com/caresphere/caresphere/internal/app/store/safezones"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/caresphere/caresphere/internal/testutil"
	"github.com/go-chi/chi/v5"
)

type zoneEnv struct {
	fixtures *testutil.Fixtures
	zones    *safezonestore.Store
	router   chi.Router
}

func newZoneEnv(t *testing.T) *zoneEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	zones := safezonestore.New(db)
	network := carenet.New(
		relationshipstore.New(db),
		consentstore.New(db),
		userstore.New(db),
		logger,
	)
	auditor := auditlog.New(audit.New(db), logger, auditlog.Config{Network: "db", Safety: "db"})
	h := safezones.NewHandler(zones, network, auditor, logger)

	return &zoneEnv{
		fixtures: testutil.NewFixtures(t, db),
		zones:    zones,
		router:   safezones.Routes(h),
	}
}

func (e *zoneEnv) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreate_WardCreatesOwnZone(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"name":"Home","lat":38.9517,"lon":-92.3341,"radius_meters":200}`)
	req = testutil.WithUser(req, testutil.AsUser(ward))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusCreated)

	var zone models.SafeZone
	if err := json.Unmarshal(rec.Body.Bytes(), &zone); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if zone.WardID != ward.ID {
		t.Errorf("ward: got %s, want %s", zone.WardID.Hex(), ward.ID.Hex())
	}
	if !zone.Active {
		t.Error("new zone should be active")
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"lat":38.9,"lon":-92.3,"radius_meters":100}`},
		{"bad latitude", `{"name":"Home","lat":91,"lon":-92.3,"radius_meters":100}`},
		{"bad longitude", `{"name":"Home","lat":38.9,"lon":-181,"radius_meters":100}`},
		{"zero radius", `{"name":"Home","lat":38.9,"lon":-92.3,"radius_meters":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(http.MethodPost, "/", tc.body)
			req = testutil.WithUser(req, testutil.AsUser(ward))
			env.serve(req).AssertStatus(t, http.StatusUnprocessableEntity)
		})
	}
}

func TestCreate_GuardianNeedsConsent(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")
	env.fixtures.CreateRelationship(ctx, ward.ID, guardian.ID, models.RelationshipActive)

	body := `{"ward_id":"` + ward.ID.Hex() + `","name":"School","lat":38.94,"lon":-92.33,"radius_meters":150}`

	req := testutil.NewJSONRequest(http.MethodPost, "/", body)
	req = testutil.WithUser(req, testutil.AsUser(guardian))
	env.serve(req).AssertStatus(t, http.StatusForbidden)

	env.fixtures.CreateConsent(ctx, ward.ID, guardian.ID, models.ConsentManageSafeZones, true)

	req = testutil.NewJSONRequest(http.MethodPost, "/", body)
	req = testutil.WithUser(req, testutil.AsUser(guardian))
	env.serve(req).AssertStatus(t, http.StatusCreated)
}

func TestCreate_GuardianWithoutWardIDRejected(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	guardian := env.fixtures.CreateGuardian(ctx, "Dana", "dana@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"name":"School","lat":38.94,"lon":-92.33,"radius_meters":150}`)
	req = testutil.WithUser(req, testutil.AsUser(guardian))
	env.serve(req).AssertStatus(t, http.StatusBadRequest)
}

func TestCreate_WardCannotTargetAnotherWard(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	other := env.fixtures.CreateWard(ctx, "Ben", "ben@example.com")

	req := testutil.NewJSONRequest(http.MethodPost, "/",
		`{"ward_id":"`+other.ID.Hex()+`","name":"Home","lat":38.9,"lon":-92.3,"radius_meters":100}`)
	req = testutil.WithUser(req, testutil.AsUser(ward))
	env.serve(req).AssertStatus(t, http.StatusForbidden)
}

func TestUpdate_RenamesZone(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	zone := env.fixtures.CreateSafeZone(ctx, ward.ID, "Home", 38.9517, -92.3341, 200)

	req := testutil.NewJSONRequest(http.MethodPut, "/"+zone.ID.Hex(),
		`{"name":"Home Base","lat":38.9517,"lon":-92.3341,"radius_meters":250}`)
	req = testutil.WithUser(req, testutil.AsUser(ward))

	rec := env.serve(req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Home Base")
}

func TestDeactivate_ThenListFiltersIt(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	zone := env.fixtures.CreateSafeZone(ctx, ward.ID, "Home", 38.9517, -92.3341, 200)
	env.fixtures.CreateSafeZone(ctx, ward.ID, "School", 38.94, -92.33, 150)

	req := testutil.NewAuthenticatedRequest(http.MethodPost,
		"/"+zone.ID.Hex()+"/deactivate", testutil.AsUser(ward))
	env.serve(req).AssertStatus(t, http.StatusOK)

	listReq := testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsUser(ward))
	rec := env.serve(listReq)
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Zones []models.SafeZone `json:"zones"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Zones) != 1 || resp.Zones[0].Name != "School" {
		t.Fatalf("active zones: got %v", resp.Zones)
	}

	allReq := testutil.NewAuthenticatedRequest(http.MethodGet, "/?all=1", testutil.AsUser(ward))
	allRec := env.serve(allReq)
	allRec.AssertStatus(t, http.StatusOK)

	if err := json.Unmarshal(allRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Zones) != 2 {
		t.Errorf("all zones: got %d, want 2", len(resp.Zones))
	}
}

func TestDelete_RemovesZone(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	zone := env.fixtures.CreateSafeZone(ctx, ward.ID, "Home", 38.9517, -92.3341, 200)

	req := testutil.NewAuthenticatedRequest(http.MethodDelete,
		"/"+zone.ID.Hex(), testutil.AsUser(ward))
	env.serve(req).AssertStatus(t, http.StatusNoContent)

	again := testutil.NewAuthenticatedRequest(http.MethodDelete,
		"/"+zone.ID.Hex(), testutil.AsUser(ward))
	env.serve(again).AssertStatus(t, http.StatusNotFound)
}

func TestZoneAccess_OtherWardForbidden(t *testing.T) {
	env := newZoneEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ward := env.fixtures.CreateWard(ctx, "Mia", "mia@example.com")
	other := env.fixtures.CreateWard(ctx, "Ben", "ben@example.com")
	zone := env.fixtures.CreateSafeZone(ctx, ward.ID, "Home", 38.9517, -92.3341, 200)

	req := testutil.NewAuthenticatedRequest(http.MethodDelete,
		"/"+zone.ID.Hex(), testutil.AsUser(other))
	env.serve(req).AssertStatus(t, http.StatusForbidden)
}
