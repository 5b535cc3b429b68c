package server

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"pixelplaza/server/internal/net/proto"
	"pixelplaza/server/logging"
	lifecyclelog "pixelplaza/server/logging/lifecycle"
)

// Participant is one joined connection's avatar state in the shared world.
type Participant struct {
	ConnID    string
	UserID    string
	Name      string
	CharType  string
	Level     int
	RankTitle string
	AvatarURL string
	ExpPoints int
	X         float64
	Z         float64
	Direction float64
	AnimState string
	IsMoving  bool
	LastSeen  time.Time
}

func (p *Participant) snapshot() proto.Player {
	return proto.Player{
		ID:        p.ConnID,
		UserID:    p.UserID,
		Name:      p.Name,
		CharType:  p.CharType,
		Level:     p.Level,
		RankTitle: p.RankTitle,
		AvatarURL: p.AvatarURL,
		ExpPoints: p.ExpPoints,
		X:         p.X,
		Z:         p.Z,
		Direction: p.Direction,
		AnimState: p.AnimState,
	}
}

// JoinWorld places the connection's avatar in the plaza. Authenticated
// identities are deduplicated first: a prior world session for the same user
// is superseded, closed, and announced as disconnected. The joiner receives
// the full snapshot including chat history; everyone else receives a delta.
func (h *Hub) JoinWorld(ctx context.Context, connID string, cmd proto.JoinCommand) bool {
	history, err := h.chat.History(ctx)
	if err != nil {
		h.logger.Printf("chat history unavailable for join: %v", err)
		history = nil
	}

	var saved *mgl64.Vec2
	if cmd.X != nil && cmd.Z != nil {
		saved = &mgl64.Vec2{*cmd.X, *cmd.Z}
	}

	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}

	var evictions []outbound
	var evictedSession Session
	if conn.identity.Authenticated() {
		evictions, evictedSession = h.supersedeLocked(conn.identity.UserID, connID)
		h.worldSessions[conn.identity.UserID] = connID
	}

	pos := spawnPosition(h.rng, h.obstacles, saved)
	participant := h.buildParticipant(conn, cmd, pos)
	h.participants[connID] = participant

	others := make([]proto.Player, 0, len(h.participants)-1)
	for id, p := range h.participants {
		if id == connID {
			continue
		}
		others = append(others, p.snapshot())
	}

	you := participant.snapshot()
	deltas := h.worldOutboundLocked(proto.EventNewPlayer, you, connID)
	h.mu.Unlock()

	h.deliver(evictions)
	if evictedSession != nil {
		evictedSession.Close()
	}

	h.deliver([]outbound{{connID: connID, session: conn.session, event: proto.EventCurrentPlayers,
		payload: proto.CurrentPlayersPayload{You: you, Players: others, ChatHistory: history}}})
	h.deliver(deltas)

	lifecyclelog.WorldJoined(ctx, h.publisher,
		logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		lifecyclelog.WorldJoinedPayload{SpawnX: pos.X(), SpawnZ: pos.Y()})
	return true
}

// buildParticipant merges the join request with the resolved identity. An
// authenticated account's stored profile wins over client-submitted fields.
func (h *Hub) buildParticipant(conn *connection, cmd proto.JoinCommand, pos mgl64.Vec2) *Participant {
	p := &Participant{
		ConnID:    conn.id,
		Name:      sanitizeDisplayName(cmd.Name),
		CharType:  normalizeCharType(cmd.CharType),
		Level:     cmd.Level,
		RankTitle: cmd.RankTitle,
		AvatarURL: cmd.AvatarURL,
		ExpPoints: cmd.ExpPoints,
		X:         pos.X(),
		Z:         pos.Y(),
		LastSeen:  h.clock(),
	}
	if conn.identity.Authenticated() {
		account := conn.identity.Account
		p.UserID = conn.identity.UserID
		p.Name = account.DisplayName
		p.Level = account.Level
		p.RankTitle = account.RankTitle
		p.AvatarURL = account.AvatarURL
		p.ExpPoints = account.ExpPoints
		if account.CharType != "" {
			p.CharType = normalizeCharType(account.CharType)
		}
	}
	if p.Name == "" {
		p.Name = "guest"
	}
	return p
}

func normalizeCharType(charType string) string {
	if _, ok := allowedCharTypes[charType]; ok {
		return charType
	}
	return defaultCharType
}

// Move applies a client-reported position update. Non-finite or out-of-bound
// coordinates are rejected with no mutation and no broadcast. Positions
// inside the bound are trusted without a collision re-check; only spawn
// placement is collision-validated.
func (h *Hub) Move(connID string, cmd proto.MoveCommand) bool {
	if !isFinite(cmd.X) || !isFinite(cmd.Z) || !isFinite(cmd.Direction) {
		return false
	}
	if math.Abs(cmd.X) > moveBound || math.Abs(cmd.Z) > moveBound {
		return false
	}

	h.mu.Lock()
	p, ok := h.participants[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	p.X = cmd.X
	p.Z = cmd.Z
	p.Direction = cmd.Direction
	if cmd.AnimState != "" {
		p.AnimState = cmd.AnimState
	}
	p.LastSeen = h.clock()
	msgs := h.worldOutboundLocked(proto.EventPlayerMoved, proto.PlayerMovedPayload{
		ID:        connID,
		X:         p.X,
		Z:         p.Z,
		Direction: p.Direction,
		AnimState: p.AnimState,
	}, connID)
	h.mu.Unlock()

	h.deliver(msgs)
	return true
}

// UpdateAnimation is the low-latency path: it touches only facing and
// animation and broadcasts immediately, bypassing positional logic.
func (h *Hub) UpdateAnimation(connID string, cmd proto.AnimationStateCommand) bool {
	if !isFinite(cmd.Direction) {
		return false
	}

	h.mu.Lock()
	p, ok := h.participants[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	p.AnimState = cmd.AnimState
	p.Direction = cmd.Direction
	p.IsMoving = cmd.IsMoving
	p.LastSeen = h.clock()
	msgs := h.worldOutboundLocked(proto.EventAnimationStateChanged, proto.AnimationStatePayload{
		ID:        connID,
		AnimState: cmd.AnimState,
		Direction: cmd.Direction,
		IsMoving:  cmd.IsMoving,
	}, connID)
	h.mu.Unlock()

	h.deliver(msgs)
	return true
}

// TeleportHome recomputes a safe position, ignoring the participant's
// current coordinates, and broadcasts the correction to everyone including
// the participant.
func (h *Hub) TeleportHome(connID string) bool {
	h.mu.Lock()
	p, ok := h.participants[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	pos := spawnPosition(h.rng, h.obstacles, nil)
	p.X = pos.X()
	p.Z = pos.Y()
	p.LastSeen = h.clock()
	msgs := h.worldOutboundLocked(proto.EventPlayerMoved, proto.PlayerMovedPayload{
		ID:        connID,
		X:         p.X,
		Z:         p.Z,
		Direction: p.Direction,
		AnimState: p.AnimState,
	})
	h.mu.Unlock()

	h.deliver(msgs)
	return true
}

// ChangeCharacter swaps the avatar against the closed character set. The
// broadcast includes the sender, whose own rendering must reflect the swap.
func (h *Hub) ChangeCharacter(connID string, cmd proto.ChangeCharacterCommand) bool {
	if _, allowed := allowedCharTypes[cmd.CharType]; !allowed {
		h.sendError(connID, proto.ErrCodeInvalidChar, "unknown character type")
		return false
	}

	h.mu.Lock()
	p, ok := h.participants[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	p.CharType = cmd.CharType
	if cmd.X != nil && cmd.Z != nil && isFinite(*cmd.X) && isFinite(*cmd.Z) &&
		math.Abs(*cmd.X) <= moveBound && math.Abs(*cmd.Z) <= moveBound {
		p.X = *cmd.X
		p.Z = *cmd.Z
	}
	p.LastSeen = h.clock()
	msgs := h.worldOutboundLocked(proto.EventPlayerCharacterChanged, proto.CharacterChangedPayload{
		ID:       connID,
		CharType: p.CharType,
		X:        cmd.X,
		Z:        cmd.Z,
	})
	h.mu.Unlock()

	h.deliver(msgs)
	return true
}

// Chat sanitizes and appends the message to the shared history, then
// broadcasts it to every world participant.
func (h *Hub) Chat(ctx context.Context, connID string, cmd proto.ChatCommand) bool {
	text := sanitizeChatText(cmd.Text)
	if text == "" {
		return false
	}

	h.mu.Lock()
	p, ok := h.participants[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	msg := proto.ChatMessage{
		SenderID:    p.UserID,
		DisplayName: p.Name,
		Text:        text,
		Level:       p.Level,
		RankTitle:   p.RankTitle,
		AvatarURL:   p.AvatarURL,
		SentAt:      h.clock(),
	}
	p.LastSeen = msg.SentAt
	msgs := h.worldOutboundLocked(proto.EventChatMessage, msg)
	h.mu.Unlock()

	if err := h.chat.Append(ctx, msg); err != nil {
		h.logger.Printf("chat append failed: %v", err)
	}
	h.deliver(msgs)
	return true
}

func (h *Hub) sendError(connID, code, message string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.deliver([]outbound{{connID: connID, session: conn.session, event: proto.EventError,
		payload: proto.ErrorPayload{Code: code, Message: message}}})
}
