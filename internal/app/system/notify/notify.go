// Package notify is the engine's boundary to the push-delivery channel.
//
// The channel is at-least-once and may duplicate or reorder; payloads carry
// the alert id so the receiving client can deep-link and deduplicate.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Payload is the structured record handed to the delivery channel, one per
// target guardian.
type Payload struct {
	MessageID string `json:"message_id"` // uuid, for client-side dedup
	TargetID  string `json:"target_id"`  // guardian user id
	Type      string `json:"type"`       // sos | geofence
	Severity  string `json:"severity"`   // warning | critical
	WardID    string `json:"ward_id"`
	AlertID   string `json:"alert_id"`
	Message   string `json:"message"`
}

// Notifier enqueues one notification for one guardian. Implementations are
// at-least-once; a returned error means the enqueue itself failed and the
// caller may count and log it, but must not fail the enclosing alert.
type Notifier interface {
	Send(ctx context.Context, p Payload) error
	Close() error
}

// LogNotifier writes notifications to the log instead of a broker. Used in
// dev and tests when no AMQP URL is configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (n *LogNotifier) Send(ctx context.Context, p Payload) error {
	n.Log.Info("notification (log-only transport)",
		zap.String("message_id", p.MessageID),
		zap.String("target_id", p.TargetID),
		zap.String("type", p.Type),
		zap.String("severity", p.Severity),
		zap.String("alert_id", p.AlertID))
	return nil
}

func (n *LogNotifier) Close() error { return nil }
