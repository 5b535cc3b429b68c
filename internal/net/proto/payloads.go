package proto

import "time"

// Player is the wire snapshot of one world participant.
type Player struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId,omitempty"`
	Name      string  `json:"name"`
	CharType  string  `json:"charType"`
	Level     int     `json:"level"`
	RankTitle string  `json:"rankTitle"`
	AvatarURL string  `json:"avatarUrl"`
	ExpPoints int     `json:"expPoints"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Direction float64 `json:"direction"`
	AnimState string  `json:"animState"`
}

// ChatMessage is the immutable shared-world chat record.
type ChatMessage struct {
	SenderID    string    `json:"senderId,omitempty"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Level       int       `json:"level"`
	RankTitle   string    `json:"rankTitle"`
	AvatarURL   string    `json:"avatarUrl"`
	SentAt      time.Time `json:"sentAt"`
}

// ConnectedPayload acknowledges a registered connection.
type ConnectedPayload struct {
	ConnID        string `json:"connId"`
	Authenticated bool   `json:"authenticated"`
	ServerTime    int64  `json:"serverTime"`
}

// CurrentPlayersPayload is the full-state snapshot sent to a new joiner.
type CurrentPlayersPayload struct {
	You         Player        `json:"you"`
	Players     []Player      `json:"players"`
	ChatHistory []ChatMessage `json:"chatHistory"`
}

// PlayerMovedPayload carries a position delta for one participant.
type PlayerMovedPayload struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Direction float64 `json:"direction"`
	AnimState string  `json:"animState"`
}

// AnimationStatePayload carries the low-latency facing/animation delta.
type AnimationStatePayload struct {
	ID        string  `json:"id"`
	AnimState string  `json:"animState"`
	Direction float64 `json:"direction"`
	IsMoving  bool    `json:"isMoving"`
}

// PlayerDisconnectedPayload names a participant that left the world.
type PlayerDisconnectedPayload struct {
	ID string `json:"id"`
}

// CharacterChangedPayload carries a validated character swap.
type CharacterChangedPayload struct {
	ID       string   `json:"id"`
	CharType string   `json:"charType"`
	X        *float64 `json:"x,omitempty"`
	Z        *float64 `json:"z,omitempty"`
}

// SessionSupersededPayload is sent to an evicted connection before closing it.
type SessionSupersededPayload struct {
	Reason string `json:"reason"`
}

// ResourceViewerCountPayload carries a throttled viewer-count broadcast.
type ResourceViewerCountPayload struct {
	ResourceID string `json:"resourceId"`
	Count      int    `json:"count"`
}

// ServerStatsPayload is the point-in-time snapshot answering getStats.
type ServerStatsPayload struct {
	Connections        int    `json:"connections"`
	AuthenticatedUsers int    `json:"authenticatedUsers"`
	WorldParticipants  int    `json:"worldParticipants"`
	TrackedResources   int    `json:"trackedResources"`
	TotalConnections   uint64 `json:"totalConnections"`
	PeakConnections    uint64 `json:"peakConnections"`
	BroadcastsSent     uint64 `json:"broadcastsSent"`
	MessagesReceived   uint64 `json:"messagesReceived"`
	UptimeSeconds      int64  `json:"uptimeSeconds"`
	ServerTime         int64  `json:"serverTime"`
}

// ErrorPayload answers a malformed or out-of-range request without closing
// the connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in ErrorPayload.
const (
	ErrCodeBadMessage  = "bad_message"
	ErrCodeInvalidChar = "invalid_character"
	ErrCodeNotInWorld  = "not_in_world"
)
