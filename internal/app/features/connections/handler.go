// Package connections exposes the ward–guardian relationship lifecycle:
// request, accept, reject, revoke, and the connection lists.
package connections

import (
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"go.uber.org/zap"
)

// Handler holds dependencies for the connection endpoints.
type Handler struct {
	Network *carenet.Manager
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(network *carenet.Manager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Network: network, Audit: audit, Log: logger}
}
