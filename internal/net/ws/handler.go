package ws

import (
	"context"
	"fmt"
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	server "pixelplaza/server"
	"pixelplaza/server/internal/net/proto"
	"pixelplaza/server/logging"
	networklog "pixelplaza/server/logging/network"
)

type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

// Handler upgrades connections, resolves handshake credentials, and pumps
// the per-connection read loop. Every decoded message dispatches into the
// hub; the connection closes only when the transport itself fails.
type Handler struct {
	hub       *server.Hub
	logger    *log.Logger
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	creds := server.Credentials{
		UserID: r.URL.Query().Get("uid"),
		Token:  r.URL.Query().Get("token"),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	session := NewSession(conn)
	connID, _ := h.hub.Register(r.Context(), session, creds)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Unregister(connID)
			return
		}
		h.hub.RecordInboundMessage()
		h.hub.TouchConnection(connID)

		msg, err := proto.DecodeInbound(payload)
		if err != nil {
			networklog.MalformedMessage(r.Context(), h.publisher,
				logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
				networklog.MalformedMessagePayload{Reason: err.Error()})
			continue
		}

		h.dispatch(r.Context(), connID, session, msg)
	}
}

// dispatch routes one decoded message. A panicking handler is recovered and
// logged; the connection stays open.
func (h *Handler) dispatch(ctx context.Context, connID string, session *Session, msg proto.Inbound) {
	defer func() {
		if recovered := recover(); recovered != nil {
			networklog.HandlerPanic(ctx, h.publisher,
				logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
				networklog.HandlerPanicPayload{
					MessageType: fmt.Sprintf("%T", msg),
					Recovered:   fmt.Sprint(recovered),
				})
		}
	}()

	switch cmd := msg.(type) {
	case proto.JoinCommand:
		h.hub.JoinWorld(ctx, connID, cmd)
	case proto.MoveCommand:
		h.hub.Move(connID, cmd)
	case proto.AnimationStateCommand:
		h.hub.UpdateAnimation(connID, cmd)
	case proto.TeleportHomeCommand:
		h.hub.TeleportHome(connID)
	case proto.ChangeCharacterCommand:
		h.hub.ChangeCharacter(connID, cmd)
	case proto.ChatCommand:
		h.hub.Chat(ctx, connID, cmd)
	case proto.JoinResourceCommand:
		h.hub.JoinResource(connID, cmd.ResourceID)
	case proto.LeaveResourceCommand:
		h.hub.LeaveResource(connID, cmd.ResourceID)
	case proto.GetStatsCommand:
		if err := session.Send(proto.EventServerStats, h.hub.StatsSnapshot()); err != nil {
			h.hub.Unregister(connID)
		}
	default:
		h.logger.Printf("unhandled message type %T from %s", msg, connID)
	}
}
