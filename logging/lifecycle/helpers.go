package lifecycle

import (
	"context"

	"pixelplaza/server/logging"
)

const (
	// EventConnectionOpened is emitted when a transport connection registers.
	EventConnectionOpened logging.EventType = "lifecycle.connection_opened"
	// EventConnectionClosed is emitted when a connection is torn down.
	EventConnectionClosed logging.EventType = "lifecycle.connection_closed"
	// EventWorldJoined is emitted when a connection joins the shared world.
	EventWorldJoined logging.EventType = "lifecycle.world_joined"
	// EventSessionSuperseded is emitted when a newer session evicts an older one.
	EventSessionSuperseded logging.EventType = "lifecycle.session_superseded"
)

// ConnectionOpenedPayload captures the resolved identity of a new connection.
type ConnectionOpenedPayload struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

// WorldJoinedPayload captures spawn metadata for a new participant.
type WorldJoinedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnZ float64 `json:"spawnZ"`
}

// SessionSupersededPayload names the connection that replaced the evicted one.
type SessionSupersededPayload struct {
	ReplacedBy string `json:"replacedBy"`
}

// ConnectionOpened publishes a connection registration event.
func ConnectionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectionOpenedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnectionOpened,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// ConnectionClosed publishes a connection teardown event.
func ConnectionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnectionClosed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

// WorldJoined publishes a world join event.
func WorldJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload WorldJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWorldJoined,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// SessionSuperseded publishes an eviction event for a duplicated session.
func SessionSuperseded(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionSupersededPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionSuperseded,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
