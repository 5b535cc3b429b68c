package presence

import (
	"context"

	"pixelplaza/server/logging"
)

const (
	// EventSweepCompleted is emitted after every janitor pass over the registries.
	EventSweepCompleted logging.EventType = "presence.sweep_completed"
	// EventFanoutSkipped is emitted when a follower lookup fails and the
	// notification is dropped.
	EventFanoutSkipped logging.EventType = "presence.fanout_skipped"
)

// SweepPayload counts what a janitor pass reclaimed.
type SweepPayload struct {
	EmptyViewerSets  int `json:"emptyViewerSets"`
	StaleThrottles   int `json:"staleThrottles"`
	TrimmedThrottles int `json:"trimmedThrottles"`
	DeadSessions     int `json:"deadSessions"`
}

// FanoutSkippedPayload records the notification that was dropped.
type FanoutSkippedPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// SweepCompleted publishes the outcome of a janitor pass.
func SweepCompleted(ctx context.Context, pub logging.Publisher, payload SweepPayload) {
	if pub == nil {
		return
	}
	severity := logging.SeverityDebug
	if payload.EmptyViewerSets+payload.StaleThrottles+payload.TrimmedThrottles+payload.DeadSessions > 0 {
		severity = logging.SeverityInfo
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSweepCompleted,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: severity,
		Category: logging.CategoryPresence,
		Payload:  payload,
	})
}

// FanoutSkipped publishes a dropped-notification event.
func FanoutSkipped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FanoutSkippedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFanoutSkipped,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPresence,
		Payload:  payload,
	})
}
