// Package consents exposes the consent ledger: what each guardian may see
// of each ward, and the ward-directed grant/revoke calls that change it.
//
// Only wards mutate consent. Guardians get a read-only view of what they
// have been granted; the lifecycle cascades (seeding on accept, withdrawal
// on revoke) happen inside the care-network manager, not here.
package consents

import (
	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.uber.org/zap"
)

// Handler holds dependencies for the consent endpoints.
type Handler struct {
	Network *carenet.Manager
	Records *consentstore.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(network *carenet.Manager, records *consentstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Network: network, Records: records, Audit: audit, Log: logger}
}

// knownConsentTypes guards grant/revoke against typo'd categories. The
// ledger itself is schemaless on type; the API surface is not.
var knownConsentTypes = map[string]struct{}{
	models.ConsentLocationTracking:   {},
	models.ConsentActivityMonitoring: {},
	models.ConsentReminderManagement: {},
	models.ConsentManageSafeZones:    {},
}
