// Package wire defines the JSON envelope for every event the socket
// transport accepts or publishes, replacing the teacher's ad hoc
// map[string]interface{} type assertions (internal/game's handleMessage
// equivalent) with typed structs and explicit envelope-error returns.
package wire

import "encoding/json"

// EventType names a socket event on the wire.
type EventType string

const (
	EventRoomJoin    EventType = "ROOM_JOIN"
	EventRoomLeave   EventType = "ROOM_LEAVE"
	EventRoomTheme   EventType = "ROOM_THEME"
	EventGameStart   EventType = "GAME_START"
	EventGameAction  EventType = "GAME_ACTION"
	EventGameState   EventType = "GAME_STATE"
	EventTokenMove   EventType = "GAME_TOKEN_MOVE"
	EventGameWinner  EventType = "GAME_WINNER"
	EventChatSend    EventType = "chat:send"
	EventChatHistory EventType = "chat:history"
	EventError       EventType = "ERROR"
)

// Envelope is the outer shape of every inbound and outbound message.
// Payload is left raw so each handler decodes it against the typed
// struct for its own EventType.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals env.Payload into dst, returning an envelope-kind
// engine.Error-shaped message on mismatch (callers stamp the ErrorKind).
func (env Envelope) Decode(dst any) error {
	if len(env.Payload) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(env.Payload, dst)
}

var errEmptyPayload = jsonError("wire: empty payload")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// RoomJoinPayload is the inbound payload for EventRoomJoin.
type RoomJoinPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// RoomThemePayload is the inbound payload for EventRoomTheme (host-only).
type RoomThemePayload struct {
	Theme string `json:"theme"`
}

// GameStartPayload is the inbound payload for EventGameStart.
type GameStartPayload struct {
	Kind string `json:"kind"`
}

// GameActionPayload is the inbound payload for EventGameAction; Data is
// left raw so the target engine decodes its own action-specific shape.
type GameActionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// GameStatePayload is the outbound payload for EventGameState —
// a per-socket masked projection plus whose turn it is.
type GameStatePayload struct {
	RoomCode        string   `json:"roomCode"`
	State           any      `json:"state"`
	CurrentSeat     int      `json:"currentSeat"`
	HasTurn         bool     `json:"hasTurn"`
	AvailableAction []string `json:"availableActions,omitempty"`
}

// TokenMovePayload is the outbound payload for EventTokenMove, carrying
// one engine.Step animation hint at a time.
type TokenMovePayload struct {
	RoomCode string `json:"roomCode"`
	Kind     string `json:"kind"`
	From     any    `json:"from,omitempty"`
	To       any    `json:"to,omitempty"`
	Meta     any    `json:"meta,omitempty"`
}

// LeaderboardEntry mirrors engine.LeaderboardEntry for the wire.
type LeaderboardEntry struct {
	SeatIndex int    `json:"seatIndex"`
	PlayerID  string `json:"playerId"`
	Rank      int    `json:"rank"`
}

// GameWinnerPayload is the outbound payload for EventGameWinner.
type GameWinnerPayload struct {
	RoomCode    string             `json:"roomCode"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ChatMessage is one entry in a room's bounded chat history.
type ChatMessage struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	TimestampMs int64 `json:"timestampMs"`
}

// ChatSendPayload is the inbound payload for EventChatSend.
type ChatSendPayload struct {
	Text string `json:"text"`
}

// ChatHistoryPayload is the outbound payload for EventChatHistory.
type ChatHistoryPayload struct {
	RoomCode string        `json:"roomCode"`
	Messages []ChatMessage `json:"messages"`
}

// ErrorPayload is the outbound payload for EventError.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
