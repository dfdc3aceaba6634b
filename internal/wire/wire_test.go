package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyPayloadReturnsSentinel(t *testing.T) {
	env := Envelope{Type: EventGameAction}
	var dst GameActionPayload

	err := env.Decode(&dst)

	require.Equal(t, errEmptyPayload, err)
}

func TestDecodeMalformedJSONReturnsUnmarshalError(t *testing.T) {
	env := Envelope{Type: EventGameAction, Payload: []byte(`{not valid json`)}
	var dst GameActionPayload

	err := env.Decode(&dst)

	require.Error(t, err)
	require.NotEqual(t, errEmptyPayload, err)
}

func TestDecodePopulatesTypedStruct(t *testing.T) {
	env := Envelope{Type: EventRoomJoin, Payload: []byte(`{"roomCode":"ABCD","playerId":"p1","name":"Alice"}`)}
	var dst RoomJoinPayload

	require.NoError(t, env.Decode(&dst))

	require.Equal(t, "ABCD", dst.RoomCode)
	require.Equal(t, "p1", dst.PlayerID)
	require.Equal(t, "Alice", dst.Name)
}
