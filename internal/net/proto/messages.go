package proto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeJoin              = "join"
	TypeMove              = "move"
	TypeAnimationState    = "animationStateChanged"
	TypeTeleportHome      = "teleportHome"
	TypeChangeCharacter   = "changeCharacter"
	TypeChatMessage       = "chatMessage"
	TypeJoinResourcePage  = "joinResourcePage"
	TypeLeaveResourcePage = "leaveResourcePage"
	TypeGetStats          = "getStats"
)

// Server event identifiers.
const (
	EventConnected              = "connected"
	EventCurrentPlayers         = "currentPlayers"
	EventNewPlayer              = "newPlayer"
	EventPlayerMoved            = "playerMoved"
	EventPlayerDisconnected     = "playerDisconnected"
	EventPlayerCharacterChanged = "playerCharacterChanged"
	EventAnimationStateChanged  = "animationStateChanged"
	EventChatMessage            = "chatMessage"
	EventSessionSuperseded      = "sessionSuperseded"
	EventResourceViewerCount    = "resourceViewerCount"
	EventServerStats            = "serverStats"
	EventError                  = "errorEvent"
)

// Personal-channel event identifiers.
const (
	EventUserOnline           = "userOnline"
	EventUserOffline          = "userOffline"
	EventFollowed             = "followed"
	EventPersonalBestAchieved = "personalBestAchieved"
	EventGameStarted          = "gameStarted"
	EventGameFinished         = "gameFinished"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope frames a server event for encoding.
type OutboundEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is the closed union of decoded client messages.
type Inbound interface {
	inbound()
}

// JoinCommand asks to enter the shared world.
type JoinCommand struct {
	Name      string   `json:"name"`
	CharType  string   `json:"charType"`
	Level     int      `json:"level"`
	RankTitle string   `json:"rankTitle"`
	AvatarURL string   `json:"avatarUrl"`
	ExpPoints int      `json:"expPoints"`
	X         *float64 `json:"x,omitempty"`
	Z         *float64 `json:"z,omitempty"`
}

// MoveCommand reports a client-side position update.
type MoveCommand struct {
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Direction float64 `json:"direction"`
	AnimState string  `json:"animState"`
}

// AnimationStateCommand updates facing and animation without positional logic.
type AnimationStateCommand struct {
	AnimState string  `json:"animState"`
	Direction float64 `json:"direction"`
	IsMoving  bool    `json:"isMoving"`
}

// TeleportHomeCommand requests an authoritative safe respawn.
type TeleportHomeCommand struct{}

// ChangeCharacterCommand swaps the avatar's character type.
type ChangeCharacterCommand struct {
	CharType string   `json:"charType"`
	X        *float64 `json:"x,omitempty"`
	Z        *float64 `json:"z,omitempty"`
}

// ChatCommand posts a message to the shared-world chat.
type ChatCommand struct {
	Text string `json:"text"`
}

// JoinResourceCommand declares interest in a resource page.
type JoinResourceCommand struct {
	ResourceID string `json:"resourceId"`
}

// LeaveResourceCommand withdraws interest in a resource page.
type LeaveResourceCommand struct {
	ResourceID string `json:"resourceId"`
}

// GetStatsCommand requests a point-in-time server snapshot.
type GetStatsCommand struct{}

func (JoinCommand) inbound()            {}
func (MoveCommand) inbound()            {}
func (AnimationStateCommand) inbound()  {}
func (TeleportHomeCommand) inbound()    {}
func (ChangeCharacterCommand) inbound() {}
func (ChatCommand) inbound()            {}
func (JoinResourceCommand) inbound()    {}
func (LeaveResourceCommand) inbound()   {}
func (GetStatsCommand) inbound()        {}

// DecodeInbound validates and decodes one framed client message.
func DecodeInbound(payload []byte) (Inbound, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("proto: malformed envelope: %w", err)
	}

	decode := func(target any) error {
		if len(envelope.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("proto: malformed %s payload: %w", envelope.Type, err)
		}
		return nil
	}

	switch envelope.Type {
	case TypeJoin:
		var cmd JoinCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		cmd.Name = strings.TrimSpace(cmd.Name)
		if cmd.Name == "" {
			return nil, fmt.Errorf("proto: join requires a name")
		}
		return cmd, nil
	case TypeMove:
		var cmd MoveCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case TypeAnimationState:
		var cmd AnimationStateCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case TypeTeleportHome:
		return TeleportHomeCommand{}, nil
	case TypeChangeCharacter:
		var cmd ChangeCharacterCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cmd.CharType) == "" {
			return nil, fmt.Errorf("proto: changeCharacter requires a charType")
		}
		return cmd, nil
	case TypeChatMessage:
		var cmd ChatCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case TypeJoinResourcePage:
		var cmd JoinResourceCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		if cmd.ResourceID == "" {
			return nil, fmt.Errorf("proto: joinResourcePage requires a resourceId")
		}
		return cmd, nil
	case TypeLeaveResourcePage:
		var cmd LeaveResourceCommand
		if err := decode(&cmd); err != nil {
			return nil, err
		}
		if cmd.ResourceID == "" {
			return nil, fmt.Errorf("proto: leaveResourcePage requires a resourceId")
		}
		return cmd, nil
	case TypeGetStats:
		return GetStatsCommand{}, nil
	default:
		return nil, fmt.Errorf("proto: unknown message type %q", envelope.Type)
	}
}

// EncodeEvent frames a server event for the wire.
func EncodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(OutboundEnvelope{Type: event, Data: data})
}
