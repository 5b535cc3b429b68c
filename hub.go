package server

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"pixelplaza/server/internal/identity"
	"pixelplaza/server/internal/net/proto"
	"pixelplaza/server/logging"
	networklog "pixelplaza/server/logging/network"
)

// Session is the hub's view of one transport connection. The websocket
// implementation lives in internal/net/ws; tests substitute fakes.
type Session interface {
	Send(event string, payload any) error
	Close()
}

// Credentials are the optional handshake identity claims.
type Credentials struct {
	UserID string
	Token  string
}

// FollowerLookup is the narrow read port onto the platform's follower graph.
type FollowerLookup interface {
	Followers(ctx context.Context, userID string) ([]string, error)
}

// FollowerLookupFunc adapts a function to the FollowerLookup interface.
type FollowerLookupFunc func(ctx context.Context, userID string) ([]string, error)

func (f FollowerLookupFunc) Followers(ctx context.Context, userID string) ([]string, error) {
	return f(ctx, userID)
}

// Config wires the hub's collaborators. Zero-value fields fall back to
// in-memory or no-op implementations.
type Config struct {
	Identity  identity.Lookup
	Verifier  identity.TokenVerifier
	Followers FollowerLookup
	Chat      ChatHistory
	Publisher logging.Publisher
	Logger    *log.Logger
	Clock     func() time.Time
	Seed      int64
}

type connection struct {
	id          string
	identity    identity.Identity
	session     Session
	connectedAt time.Time
	lastActive  time.Time
}

// Hub owns every live registry of the realtime core: connections, personal
// channels, world participants, the dedup map, viewer sets, and the
// broadcast throttle. One mutex guards all of them; operations such as dedup
// eviction touch several registries and must appear atomic to callers.
type Hub struct {
	mu            sync.Mutex
	conns         map[string]*connection
	userConns     map[string]map[string]*connection
	participants  map[string]*Participant
	worldSessions map[string]string
	viewers       map[string]map[string]struct{}
	lastCount     map[string]time.Time
	rng           *rand.Rand

	obstacles []Obstacle
	chat      ChatHistory
	followers FollowerLookup
	lookup    identity.Lookup
	verifier  identity.TokenVerifier
	publisher logging.Publisher
	logger    *log.Logger
	clock     func() time.Time
	counters  *statsCounters
	started   time.Time
}

// NewHub creates a hub with empty registries and the fixed plaza layout.
func NewHub(cfg Config) *Hub {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	chat := cfg.Chat
	if chat == nil {
		chat = NewMemoryChatHistory()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = clock().UnixNano()
	}

	return &Hub{
		conns:         make(map[string]*connection),
		userConns:     make(map[string]map[string]*connection),
		participants:  make(map[string]*Participant),
		worldSessions: make(map[string]string),
		viewers:       make(map[string]map[string]struct{}),
		lastCount:     make(map[string]time.Time),
		rng:           rand.New(rand.NewSource(seed)),
		obstacles:     defaultObstacles(),
		chat:          chat,
		followers:     cfg.Followers,
		lookup:        cfg.Identity,
		verifier:      cfg.Verifier,
		publisher:     publisher,
		logger:        logger,
		clock:         clock,
		counters:      newStatsCounters(),
		started:       clock(),
	}
}

// outbound is a pending delivery collected under the hub lock and sent after
// it is released, so a slow socket never stalls the registries.
type outbound struct {
	connID  string
	session Session
	event   string
	payload any
}

func (h *Hub) deliver(msgs []outbound) {
	for _, msg := range msgs {
		if msg.session == nil {
			continue
		}
		if err := msg.session.Send(msg.event, msg.payload); err != nil {
			networklog.WriteFailed(context.Background(), h.publisher,
				logging.EntityRef{ID: msg.connID, Kind: logging.EntityKindConnection},
				networklog.WriteFailedPayload{Event: msg.event, Reason: err.Error()})
			go h.Unregister(msg.connID)
			continue
		}
		h.counters.broadcasts.Add(1)
	}
}

// worldOutboundLocked collects a broadcast to every world participant except
// the listed connection ids.
func (h *Hub) worldOutboundLocked(event string, payload any, exclude ...string) []outbound {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	msgs := make([]outbound, 0, len(h.participants))
	for connID := range h.participants {
		if _, excluded := skip[connID]; excluded {
			continue
		}
		conn, ok := h.conns[connID]
		if !ok {
			continue
		}
		msgs = append(msgs, outbound{connID: connID, session: conn.session, event: event, payload: payload})
	}
	return msgs
}

// SendToUser delivers an event to every live connection of one user.
func (h *Hub) SendToUser(userID, event string, payload any) {
	h.mu.Lock()
	msgs := h.userOutboundLocked(userID, event, payload)
	h.mu.Unlock()
	h.deliver(msgs)
}

// SendToUsers delivers an event to every live connection of the given users.
func (h *Hub) SendToUsers(userIDs []string, event string, payload any) {
	h.mu.Lock()
	var msgs []outbound
	for _, userID := range userIDs {
		msgs = append(msgs, h.userOutboundLocked(userID, event, payload)...)
	}
	h.mu.Unlock()
	h.deliver(msgs)
}

func (h *Hub) userOutboundLocked(userID, event string, payload any) []outbound {
	conns := h.userConns[userID]
	msgs := make([]outbound, 0, len(conns))
	for _, conn := range conns {
		msgs = append(msgs, outbound{connID: conn.id, session: conn.session, event: event, payload: payload})
	}
	return msgs
}

// Broadcast delivers an event to every live connection, skipping connections
// owned by the excluded user ids.
func (h *Hub) Broadcast(event string, payload any, excludeUserIDs ...string) {
	skip := make(map[string]struct{}, len(excludeUserIDs))
	for _, id := range excludeUserIDs {
		skip[id] = struct{}{}
	}
	h.mu.Lock()
	msgs := make([]outbound, 0, len(h.conns))
	for _, conn := range h.conns {
		if conn.identity.Authenticated() {
			if _, excluded := skip[conn.identity.UserID]; excluded {
				continue
			}
		}
		msgs = append(msgs, outbound{connID: conn.id, session: conn.session, event: event, payload: payload})
	}
	h.mu.Unlock()
	h.deliver(msgs)
}

// IsUserOnline reports whether the user has at least one live connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.userConns[userID]) > 0
}

// ListOnlineUsers returns the ids of every authenticated user with a live
// connection, sorted for stable output.
func (h *Hub) ListOnlineUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	users := make([]string, 0, len(h.userConns))
	for userID := range h.userConns {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// ListWorldOnlineUsers returns the ids of authenticated users currently
// present in the shared world.
func (h *Hub) ListWorldOnlineUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[string]struct{})
	for _, p := range h.participants {
		if p.UserID != "" {
			seen[p.UserID] = struct{}{}
		}
	}
	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// StatsSnapshot answers getStats with a point-in-time view.
func (h *Hub) StatsSnapshot() proto.ServerStatsPayload {
	now := h.clock()
	h.mu.Lock()
	connections := len(h.conns)
	authenticated := len(h.userConns)
	participants := len(h.participants)
	resources := len(h.viewers)
	h.mu.Unlock()

	return proto.ServerStatsPayload{
		Connections:        connections,
		AuthenticatedUsers: authenticated,
		WorldParticipants:  participants,
		TrackedResources:   resources,
		TotalConnections:   h.counters.totalConnections.Load(),
		PeakConnections:    h.counters.peakConnections.Load(),
		BroadcastsSent:     h.counters.broadcasts.Load(),
		MessagesReceived:   h.counters.messagesIn.Load(),
		UptimeSeconds:      int64(now.Sub(h.started).Seconds()),
		ServerTime:         now.UnixMilli(),
	}
}

// RecordInboundMessage feeds the message counter from the transport layer.
func (h *Hub) RecordInboundMessage() {
	h.counters.messagesIn.Add(1)
}
