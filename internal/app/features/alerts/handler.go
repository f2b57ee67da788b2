// Package alerts exposes the alert surface: ward-initiated SOS, the
// guardian alert feed, and acknowledgement.
package alerts

import (
	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/dispatch"
	"go.uber.org/zap"
)

// Handler holds dependencies for the alert endpoints.
type Handler struct {
	Dispatcher *dispatch.Dispatcher
	Alerts     *alertstore.Store
	Network    *carenet.Manager
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(dispatcher *dispatch.Dispatcher, alerts *alertstore.Store, network *carenet.Manager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Dispatcher: dispatcher,
		Alerts:     alerts,
		Network:    network,
		Audit:      audit,
		Log:        logger,
	}
}
