package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "pixelplaza/server"
	"pixelplaza/server/internal/identity"
	"pixelplaza/server/internal/net/proto"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// awaitEnvelope reads frames until one of the wanted type arrives.
func awaitEnvelope(t *testing.T, conn *websocket.Conn, wantType string) wsEnvelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", wantType)
		var envelope wsEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		if envelope.Type == wantType {
			return envelope
		}
	}
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": msgType, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func newTestServer(t *testing.T) (*server.Hub, string) {
	t.Helper()
	hub := server.NewHub(server.Config{
		Identity: identity.NewStaticLookup(
			identity.Account{ID: "alice", DisplayName: "Alice", CharType: "queen", Status: identity.AccountStatusActive},
		),
		Verifier: identity.VerifierFunc(func(token string) (string, error) {
			if userID, ok := strings.CutPrefix(token, "tok-"); ok {
				return userID, nil
			}
			return "", identity.ErrInvalidToken
		}),
		Seed: 1,
	})
	handler := NewHandler(hub, HandlerConfig{})

	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandshakeAndJoinFlow(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url+"?uid=alice&token=tok-alice")

	connected := awaitEnvelope(t, conn, proto.EventConnected)
	var connPayload proto.ConnectedPayload
	require.NoError(t, json.Unmarshal(connected.Data, &connPayload))
	assert.True(t, connPayload.Authenticated)
	assert.NotEmpty(t, connPayload.ConnID)

	sendEnvelope(t, conn, proto.TypeJoin, map[string]any{"name": "Alice", "charType": "pawn"})

	current := awaitEnvelope(t, conn, proto.EventCurrentPlayers)
	var currentPayload proto.CurrentPlayersPayload
	require.NoError(t, json.Unmarshal(current.Data, &currentPayload))
	assert.Equal(t, connPayload.ConnID, currentPayload.You.ID)
	// The account profile wins over the client-sent character type.
	assert.Equal(t, "queen", currentPayload.You.CharType)
	assert.Empty(t, currentPayload.Players)
}

func TestSecondJoinerAnnouncedToFirst(t *testing.T) {
	_, url := newTestServer(t)

	first := dial(t, url)
	awaitEnvelope(t, first, proto.EventConnected)
	sendEnvelope(t, first, proto.TypeJoin, map[string]any{"name": "Walker"})
	awaitEnvelope(t, first, proto.EventCurrentPlayers)

	second := dial(t, url)
	awaitEnvelope(t, second, proto.EventConnected)
	sendEnvelope(t, second, proto.TypeJoin, map[string]any{"name": "Runner"})

	announced := awaitEnvelope(t, first, proto.EventNewPlayer)
	var player proto.Player
	require.NoError(t, json.Unmarshal(announced.Data, &player))
	assert.Equal(t, "Runner", player.Name)

	var current proto.CurrentPlayersPayload
	require.NoError(t, json.Unmarshal(awaitEnvelope(t, second, proto.EventCurrentPlayers).Data, &current))
	require.Len(t, current.Players, 1)
	assert.Equal(t, "Walker", current.Players[0].Name)
}

func TestGetStatsRepliesOnRequestingConnection(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	awaitEnvelope(t, conn, proto.EventConnected)

	sendEnvelope(t, conn, proto.TypeGetStats, nil)

	stats := awaitEnvelope(t, conn, proto.EventServerStats)
	var payload proto.ServerStatsPayload
	require.NoError(t, json.Unmarshal(stats.Data, &payload))
	assert.Equal(t, 1, payload.Connections)
}

func TestMalformedFrameKeepsConnectionAlive(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	awaitEnvelope(t, conn, proto.EventConnected)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// The connection still services requests afterwards.
	sendEnvelope(t, conn, proto.TypeGetStats, nil)
	awaitEnvelope(t, conn, proto.EventServerStats)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	hub, url := newTestServer(t)

	conn := dial(t, url)
	connected := awaitEnvelope(t, conn, proto.EventConnected)
	var connPayload proto.ConnectedPayload
	require.NoError(t, json.Unmarshal(connected.Data, &connPayload))

	conn.Close()

	require.Eventually(t, func() bool {
		_, live := hub.Lookup(connPayload.ConnID)
		return !live
	}, 2*time.Second, 10*time.Millisecond)
}
