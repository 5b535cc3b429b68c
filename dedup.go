package server

import (
	"context"

	"pixelplaza/server/internal/net/proto"
	"pixelplaza/server/logging"
	lifecyclelog "pixelplaza/server/logging/lifecycle"
)

// supersedeLocked enforces at most one world session per authenticated user.
// If the user already holds a session on a different live connection, that
// connection gets a supersession notice, its participant is removed, and its
// removal is announced to the remaining participants. The caller replaces
// the dedup entry afterwards. Anonymous identities never reach this path.
//
// Returns the pending deliveries and the session to close once the notice
// has been sent.
func (h *Hub) supersedeLocked(userID, newConnID string) ([]outbound, Session) {
	prevConnID, exists := h.worldSessions[userID]
	if !exists || prevConnID == newConnID {
		return nil, nil
	}

	prevConn, live := h.conns[prevConnID]
	var msgs []outbound
	var toClose Session
	if live {
		msgs = append(msgs, outbound{connID: prevConnID, session: prevConn.session,
			event: proto.EventSessionSuperseded,
			payload: proto.SessionSupersededPayload{
				Reason: "world session opened elsewhere",
			}})
		toClose = prevConn.session
	}

	if _, joined := h.participants[prevConnID]; joined {
		delete(h.participants, prevConnID)
		msgs = append(msgs, h.worldOutboundLocked(proto.EventPlayerDisconnected,
			proto.PlayerDisconnectedPayload{ID: prevConnID}, newConnID)...)
	}
	delete(h.worldSessions, userID)

	lifecyclelog.SessionSuperseded(context.Background(), h.publisher,
		logging.EntityRef{ID: prevConnID, Kind: logging.EntityKindConnection},
		lifecyclelog.SessionSupersededPayload{ReplacedBy: newConnID})

	return msgs, toClose
}
