package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInboundJoin(t *testing.T) {
	raw := `{"type":"join","data":{"name":"  Alice ","charType":"queen","level":12,"x":3.5,"z":-1.25}}`
	decoded, err := DecodeInbound([]byte(raw))
	require.NoError(t, err)

	cmd, ok := decoded.(JoinCommand)
	require.True(t, ok)
	assert.Equal(t, "Alice", cmd.Name)
	assert.Equal(t, "queen", cmd.CharType)
	assert.Equal(t, 12, cmd.Level)
	require.NotNil(t, cmd.X)
	require.NotNil(t, cmd.Z)
	assert.Equal(t, 3.5, *cmd.X)
	assert.Equal(t, -1.25, *cmd.Z)
}

func TestDecodeInboundJoinWithoutCoordinates(t *testing.T) {
	decoded, err := DecodeInbound([]byte(`{"type":"join","data":{"name":"Bob"}}`))
	require.NoError(t, err)
	cmd := decoded.(JoinCommand)
	assert.Nil(t, cmd.X)
	assert.Nil(t, cmd.Z)
}

func TestDecodeInboundMove(t *testing.T) {
	decoded, err := DecodeInbound([]byte(`{"type":"move","data":{"x":1,"z":2,"direction":1.57,"animState":"running"}}`))
	require.NoError(t, err)
	assert.Equal(t, MoveCommand{X: 1, Z: 2, Direction: 1.57, AnimState: "running"}, decoded)
}

func TestDecodeInboundPayloadlessTypes(t *testing.T) {
	decoded, err := DecodeInbound([]byte(`{"type":"teleportHome"}`))
	require.NoError(t, err)
	assert.Equal(t, TeleportHomeCommand{}, decoded)

	decoded, err = DecodeInbound([]byte(`{"type":"getStats"}`))
	require.NoError(t, err)
	assert.Equal(t, GetStatsCommand{}, decoded)
}

func TestDecodeInboundResourceCommands(t *testing.T) {
	decoded, err := DecodeInbound([]byte(`{"type":"joinResourcePage","data":{"resourceId":"game-42"}}`))
	require.NoError(t, err)
	assert.Equal(t, JoinResourceCommand{ResourceID: "game-42"}, decoded)

	decoded, err = DecodeInbound([]byte(`{"type":"leaveResourcePage","data":{"resourceId":"game-42"}}`))
	require.NoError(t, err)
	assert.Equal(t, LeaveResourceCommand{ResourceID: "game-42"}, decoded)
}

func TestDecodeInboundRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed envelope", `{"type":`},
		{"unknown type", `{"type":"castSpell"}`},
		{"join without name", `{"type":"join","data":{"charType":"pawn"}}`},
		{"join with blank name", `{"type":"join","data":{"name":"   "}}`},
		{"joinResourcePage without id", `{"type":"joinResourcePage","data":{}}`},
		{"leaveResourcePage without id", `{"type":"leaveResourcePage"}`},
		{"changeCharacter without type", `{"type":"changeCharacter","data":{"x":1}}`},
		{"move with wrong field type", `{"type":"move","data":{"x":"east"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeInbound([]byte(tc.raw))
			assert.Error(t, err)
			assert.Nil(t, decoded)
		})
	}
}

func TestEncodeEventFramesEnvelope(t *testing.T) {
	raw, err := EncodeEvent(EventResourceViewerCount, ResourceViewerCountPayload{ResourceID: "game-1", Count: 3})
	require.NoError(t, err)

	var envelope struct {
		Type string                    `json:"type"`
		Data ResourceViewerCountPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, EventResourceViewerCount, envelope.Type)
	assert.Equal(t, "game-1", envelope.Data.ResourceID)
	assert.Equal(t, 3, envelope.Data.Count)
}

func TestEncodeEventOmitsNilData(t *testing.T) {
	raw, err := EncodeEvent(EventUserOnline, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"userOnline"}`, string(raw))
}
