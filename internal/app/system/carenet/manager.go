// Package carenet is the authoritative owner of the ward–guardian
// relationship lifecycle and its consent cascade.
//
// Every other component resolves "who is connected to whom, and what may
// they see" through this manager instead of re-querying the store ad hoc,
// so the answer cannot drift between callers. Multi-step operations mutate
// the authoritative relationship row first (compare-and-set on status) and
// then propagate dependent consent mutations, each of which is idempotent,
// so a partial failure is always safe to retry.
package carenet

import (
	"context"
	"errors"
	"fmt"
	"time"

	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrNotAuthorized is returned when the acting user is not permitted
	// to perform the transition (wrong party, or the initiator trying to
	// accept their own request).
	ErrNotAuthorized = errors.New("user is not authorized for this relationship action")

	// ErrNotConnected is returned when a consent mutation targets a pair
	// without an active relationship.
	ErrNotConnected = errors.New("no active relationship exists for this pair")

	// ErrSameRole is returned when a connection request pairs two users of
	// the same role.
	ErrSameRole = errors.New("a connection must pair a ward with a guardian")
)

// RevokeReasonRejected marks rows revoked by rejecting a pending request.
const RevokeReasonRejected = "rejected"

// Connection is a relationship decorated with the counterpart's public
// profile for display.
type Connection struct {
	models.Relationship
	CounterpartID    primitive.ObjectID `json:"counterpart_id"`
	CounterpartName  string             `json:"counterpart_name"`
	CounterpartEmail string             `json:"counterpart_email,omitempty"`
	CounterpartRole  string             `json:"counterpart_role"`
}

// Manager orchestrates relationship transitions and their consent cascades.
type Manager struct {
	rels     *relationshipstore.Store
	consents *consentstore.Store
	users    *userstore.Store
	log      *zap.Logger
}

// New creates a Manager over the given stores.
func New(rels *relationshipstore.Store, consents *consentstore.Store, users *userstore.Store, logger *zap.Logger) *Manager {
	return &Manager{rels: rels, consents: consents, users: users, log: logger}
}

// RequestConnection creates a pending relationship between the initiator and
// the target. Either side may initiate; the ward/guardian assignment follows
// the initiator's role and the target must hold the opposite role.
func (m *Manager) RequestConnection(ctx context.Context, initiatorID primitive.ObjectID, initiatorRole string, targetID primitive.ObjectID, relType, detail string) (models.Relationship, error) {
	target, err := m.users.GetByID(ctx, targetID)
	if err != nil {
		return models.Relationship{}, err
	}
	if target.Role == initiatorRole {
		return models.Relationship{}, ErrSameRole
	}

	wardID, guardianID := initiatorID, targetID
	if initiatorRole == models.RoleGuardian {
		wardID, guardianID = targetID, initiatorID
	}

	rel, err := m.rels.Create(ctx, wardID, guardianID, initiatorID, relType, detail)
	if err != nil {
		return models.Relationship{}, err
	}

	m.log.Info("connection requested",
		zap.String("relationship_id", rel.ID.Hex()),
		zap.String("ward_id", wardID.Hex()),
		zap.String("guardian_id", guardianID.Hex()),
		zap.String("initiator_role", initiatorRole))
	return rel, nil
}

// Accept transitions a pending relationship to active and seeds the default
// consent set. Only the non-initiating party may accept. A repeated Accept
// on an already-active row is a no-op success: the seed runs at most once
// per relationship, so accepting again can never restore a consent the ward
// revoked after activation.
func (m *Manager) Accept(ctx context.Context, relationshipID, actingUserID primitive.ObjectID) (models.Relationship, error) {
	rel, err := m.rels.Get(ctx, relationshipID)
	if err != nil {
		return models.Relationship{}, err
	}
	if err := requireNonInitiator(rel, actingUserID); err != nil {
		return models.Relationship{}, err
	}

	rel, transitioned, err := m.rels.Activate(ctx, relationshipID, time.Now().UTC())
	if err != nil {
		return models.Relationship{}, err
	}

	// Seed defaults until the one-shot flag is set. The flag is recorded
	// only after every grant succeeded, so a crash between Activate and the
	// grants leaves it clear and the next Accept finishes the seeding. Once
	// it is set, a repeated Accept skips the grants entirely: re-accepting
	// must not flip back a consent the ward has since revoked.
	if !rel.ConsentsSeeded {
		for _, ct := range consentstore.DefaultConsentTypes {
			if err := m.consents.Grant(ctx, rel.WardID, rel.GuardianID, ct, "seeded on relationship activation"); err != nil {
				return models.Relationship{}, fmt.Errorf("seed consent %s: %w", ct, err)
			}
		}
		if err := m.rels.MarkConsentsSeeded(ctx, rel.ID); err != nil {
			return models.Relationship{}, fmt.Errorf("mark consents seeded: %w", err)
		}
		rel.ConsentsSeeded = true
	}
	granted, err := m.refreshPermissionCache(ctx, rel.WardID, rel.GuardianID)
	if err != nil {
		return models.Relationship{}, err
	}
	rel.Permissions = granted

	if transitioned {
		m.log.Info("connection accepted",
			zap.String("relationship_id", rel.ID.Hex()),
			zap.String("ward_id", rel.WardID.Hex()),
			zap.String("guardian_id", rel.GuardianID.Hex()))
	}
	return rel, nil
}

// Reject revokes a pending request. Only the non-initiating party may
// reject. Rejecting an already-revoked row is a no-op success; rejecting a
// row that was concurrently accepted fails with ErrNotPending.
func (m *Manager) Reject(ctx context.Context, relationshipID, actingUserID primitive.ObjectID) (models.Relationship, error) {
	rel, err := m.rels.Get(ctx, relationshipID)
	if err != nil {
		return models.Relationship{}, err
	}
	if err := requireNonInitiator(rel, actingUserID); err != nil {
		return models.Relationship{}, err
	}

	rel, transitioned, err := m.rels.Terminate(ctx, relationshipID, RevokeReasonRejected, time.Now().UTC(), models.RelationshipPending)
	if err != nil {
		return models.Relationship{}, err
	}
	if transitioned {
		m.log.Info("connection rejected",
			zap.String("relationship_id", rel.ID.Hex()))
	}
	return rel, nil
}

// Revoke terminates an active or pending relationship and withdraws every
// consent for the pair. Either party may revoke at any time. The consent
// cascade runs on every call that lands on a revoked row so a retried
// revocation finishes the cascade a crashed one left behind.
func (m *Manager) Revoke(ctx context.Context, relationshipID, actingUserID primitive.ObjectID, reason string) (models.Relationship, error) {
	rel, err := m.rels.Get(ctx, relationshipID)
	if err != nil {
		return models.Relationship{}, err
	}
	if err := requireParty(rel, actingUserID); err != nil {
		return models.Relationship{}, err
	}

	rel, transitioned, err := m.rels.Terminate(ctx, relationshipID, reason, time.Now().UTC())
	if err != nil {
		return models.Relationship{}, err
	}

	if err := m.consents.RevokeAll(ctx, rel.WardID, rel.GuardianID, "relationship revoked"); err != nil {
		return models.Relationship{}, fmt.Errorf("revoke consents: %w", err)
	}

	if transitioned {
		m.log.Info("connection revoked",
			zap.String("relationship_id", rel.ID.Hex()),
			zap.String("ward_id", rel.WardID.Hex()),
			zap.String("guardian_id", rel.GuardianID.Hex()),
			zap.String("reason", reason))
	}
	return rel, nil
}

// ListActive returns the user's active connections decorated with the
// counterpart's profile.
func (m *Manager) ListActive(ctx context.Context, userID primitive.ObjectID, role string) ([]Connection, error) {
	return m.list(ctx, userID, role, models.RelationshipActive)
}

// ListPending returns the user's pending connections decorated with the
// counterpart's profile.
func (m *Manager) ListPending(ctx context.Context, userID primitive.ObjectID, role string) ([]Connection, error) {
	return m.list(ctx, userID, role, models.RelationshipPending)
}

func (m *Manager) list(ctx context.Context, userID primitive.ObjectID, role, status string) ([]Connection, error) {
	rels, err := m.rels.ListByUser(ctx, userID, role, status)
	if err != nil {
		return nil, err
	}

	counterpartIDs := make([]primitive.ObjectID, 0, len(rels))
	for _, rel := range rels {
		counterpartIDs = append(counterpartIDs, counterpartOf(rel, role))
	}
	profiles, err := m.users.GetManyByIDs(ctx, counterpartIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Connection, 0, len(rels))
	for _, rel := range rels {
		cid := counterpartOf(rel, role)
		conn := Connection{Relationship: rel, CounterpartID: cid}
		if p, ok := profiles[cid]; ok {
			conn.CounterpartName = p.DisplayName
			conn.CounterpartEmail = p.Email
			conn.CounterpartRole = p.Role
		}
		out = append(out, conn)
	}
	return out, nil
}

// ActiveGuardianIDs resolves the guardian set for alert fan-out.
func (m *Manager) ActiveGuardianIDs(ctx context.Context, wardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return m.rels.ActiveGuardianIDs(ctx, wardID)
}

// ActiveWardIDs resolves the wards a guardian may see alerts for.
func (m *Manager) ActiveWardIDs(ctx context.Context, guardianID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return m.rels.ActiveWardIDs(ctx, guardianID)
}

// GrantConsent records an explicit ward-directed grant. Requires an active
// relationship; guardians can never self-grant (enforced at the API layer by
// requiring the ward role, and here by the ward id being the acting side).
func (m *Manager) GrantConsent(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType string) error {
	active, err := m.rels.HasActive(ctx, wardID, guardianID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNotConnected
	}
	if err := m.consents.Grant(ctx, wardID, guardianID, consentType, "granted by ward"); err != nil {
		return err
	}
	_, err = m.refreshPermissionCache(ctx, wardID, guardianID)
	return err
}

// RevokeConsent records an explicit ward-directed revocation. A missing
// record is a no-op; no active-relationship check is needed to take consent
// away.
func (m *Manager) RevokeConsent(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType string) error {
	if err := m.consents.Revoke(ctx, wardID, guardianID, consentType, "revoked by ward"); err != nil {
		return err
	}
	_, err := m.refreshPermissionCache(ctx, wardID, guardianID)
	return err
}

// HasConsent is the authorization check for exposing ward data to a
// guardian: active relationship and the specific consent granted.
func (m *Manager) HasConsent(ctx context.Context, wardID, guardianID primitive.ObjectID, consentType string) (bool, error) {
	active, err := m.rels.HasActive(ctx, wardID, guardianID)
	if err != nil {
		return false, err
	}
	if !active {
		return false, nil
	}
	return m.consents.IsGranted(ctx, wardID, guardianID, consentType)
}

func (m *Manager) refreshPermissionCache(ctx context.Context, wardID, guardianID primitive.ObjectID) ([]string, error) {
	granted, err := m.consents.ListGranted(ctx, wardID, guardianID)
	if err != nil {
		return nil, err
	}
	if err := m.rels.SetPermissions(ctx, wardID, guardianID, granted); err != nil {
		return nil, err
	}
	return granted, nil
}

func requireParty(rel models.Relationship, userID primitive.ObjectID) error {
	if userID != rel.WardID && userID != rel.GuardianID {
		return ErrNotAuthorized
	}
	return nil
}

func requireNonInitiator(rel models.Relationship, userID primitive.ObjectID) error {
	if err := requireParty(rel, userID); err != nil {
		return err
	}
	if userID == rel.InitiatorID {
		return ErrNotAuthorized
	}
	return nil
}

func counterpartOf(rel models.Relationship, role string) primitive.ObjectID {
	if role == models.RoleWard {
		return rel.GuardianID
	}
	return rel.WardID
}
