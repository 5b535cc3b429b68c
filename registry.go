package server

import (
	"context"

	"github.com/google/uuid"

	"pixelplaza/server/internal/identity"
	"pixelplaza/server/internal/net/proto"
	"pixelplaza/server/logging"
	lifecyclelog "pixelplaza/server/logging/lifecycle"
)

// Register accepts a new transport connection, resolves its identity, and
// returns the assigned connection id. Identity resolution never rejects the
// connection: invalid credentials degrade to anonymous.
func (h *Hub) Register(ctx context.Context, sess Session, creds Credentials) (string, identity.Identity) {
	resolved := h.resolveIdentity(ctx, creds)
	connID := uuid.NewString()
	now := h.clock()

	conn := &connection{
		id:          connID,
		identity:    resolved,
		session:     sess,
		connectedAt: now,
		lastActive:  now,
	}

	becameOnline := false
	h.mu.Lock()
	h.conns[connID] = conn
	if resolved.Authenticated() {
		byConn := h.userConns[resolved.UserID]
		if byConn == nil {
			byConn = make(map[string]*connection)
			h.userConns[resolved.UserID] = byConn
			becameOnline = true
		}
		byConn[connID] = conn
	}
	current := len(h.conns)
	h.mu.Unlock()

	h.counters.recordConnection(current)

	h.deliver([]outbound{{connID: connID, session: sess, event: proto.EventConnected, payload: proto.ConnectedPayload{
		ConnID:        connID,
		Authenticated: resolved.Authenticated(),
		ServerTime:    now.UnixMilli(),
	}}})

	lifecyclelog.ConnectionOpened(ctx, h.publisher,
		logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		lifecyclelog.ConnectionOpenedPayload{Authenticated: resolved.Authenticated(), UserID: resolved.UserID})

	if becameOnline {
		go h.NotifyFollowers(context.Background(), resolved.UserID, proto.EventUserOnline,
			map[string]string{"userId": resolved.UserID})
	}

	return connID, resolved
}

// resolveIdentity validates the handshake credentials against the identity
// lookup. Any failure falls through to anonymous.
func (h *Hub) resolveIdentity(ctx context.Context, creds Credentials) identity.Identity {
	if creds.Token == "" || h.verifier == nil || h.lookup == nil {
		return identity.Anonymous()
	}

	subject, err := h.verifier.Verify(creds.Token)
	if err != nil {
		h.logger.Printf("token rejected, continuing anonymous: %v", err)
		return identity.Anonymous()
	}
	if creds.UserID != "" && creds.UserID != subject {
		h.logger.Printf("token subject %s does not match claimed uid %s, continuing anonymous", subject, creds.UserID)
		return identity.Anonymous()
	}

	account, err := h.lookup.AccountByID(ctx, subject)
	if err != nil {
		h.logger.Printf("identity lookup failed for %s, continuing anonymous: %v", subject, err)
		return identity.Anonymous()
	}
	if account.Status != identity.AccountStatusActive {
		h.logger.Printf("account %s is %s, continuing anonymous", subject, account.Status)
		return identity.Anonymous()
	}

	return identity.Identity{UserID: subject, Account: account}
}

// Lookup returns the resolved identity of a live connection.
func (h *Hub) Lookup(connID string) (identity.Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return identity.Identity{}, false
	}
	return conn.identity, true
}

// TouchConnection refreshes the connection's last-activity timestamp.
func (h *Hub) TouchConnection(connID string) {
	now := h.clock()
	h.mu.Lock()
	if conn, ok := h.conns[connID]; ok {
		conn.lastActive = now
	}
	h.mu.Unlock()
}

// Unregister tears a connection out of every registry it touched: world
// participants, the dedup map, viewer sets, and personal channels. It is the
// single cleanup path for both clean disconnects and write failures.
func (h *Hub) Unregister(connID string) {
	now := h.clock()

	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)

	var msgs []outbound

	if _, joined := h.participants[connID]; joined {
		delete(h.participants, connID)
		msgs = append(msgs, h.worldOutboundLocked(proto.EventPlayerDisconnected,
			proto.PlayerDisconnectedPayload{ID: connID})...)
	}

	if conn.identity.Authenticated() {
		userID := conn.identity.UserID
		if h.worldSessions[userID] == connID {
			delete(h.worldSessions, userID)
		}
		if byConn := h.userConns[userID]; byConn != nil {
			delete(byConn, connID)
			if len(byConn) == 0 {
				delete(h.userConns, userID)
				defer func() {
					go h.NotifyFollowers(context.Background(), userID, proto.EventUserOffline,
						map[string]string{"userId": userID})
				}()
			}
		}
	}

	msgs = append(msgs, h.leaveAllResourcesLocked(connID, now)...)
	h.mu.Unlock()

	h.deliver(msgs)
	conn.session.Close()

	lifecyclelog.ConnectionClosed(context.Background(), h.publisher,
		logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection})
}
