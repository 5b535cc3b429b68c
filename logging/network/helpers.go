package network

import (
	"context"

	"pixelplaza/server/logging"
)

const (
	// EventMalformedMessage is emitted when an inbound payload fails to decode.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventWriteFailed is emitted when an outbound write to a session fails.
	EventWriteFailed logging.EventType = "network.write_failed"
	// EventHandlerPanic is emitted when a message handler panics and is recovered.
	EventHandlerPanic logging.EventType = "network.handler_panic"
)

// MalformedMessagePayload records why an inbound message was discarded.
type MalformedMessagePayload struct {
	Reason string `json:"reason"`
}

// WriteFailedPayload records the outbound event that could not be delivered.
type WriteFailedPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// HandlerPanicPayload records the recovered panic value.
type HandlerPanicPayload struct {
	MessageType string `json:"messageType"`
	Recovered   string `json:"recovered"`
}

// MalformedMessage publishes a discarded-message event.
func MalformedMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MalformedMessagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMalformedMessage,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// WriteFailed publishes a delivery failure event.
func WriteFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload WriteFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWriteFailed,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// HandlerPanic publishes a recovered handler panic.
func HandlerPanic(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload HandlerPanicPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHandlerPanic,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
