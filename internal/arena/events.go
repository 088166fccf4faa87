package arena

import (
	"context"
	"time"

	"caro-arena/internal/game"
	"caro-arena/internal/store"
)

// Outbound event names. Publish delivers to every connection subscribed to
// the room channel; Target delivers to one user's connection only.
const (
	EventJoinSuccess        = "join_success"
	EventPlayerJoined       = "player_joined"
	EventRoomUpdate         = "room_update"
	EventPlayerReadyStatus  = "player_ready_status"
	EventGameStart          = "game_start"
	EventTurnStarted        = "turn_started"
	EventMoveMade           = "move_made"
	EventMoveUndone         = "move_undone"
	EventGameEnd            = "game_end"
	EventGameReset          = "game_reset"
	EventDrawRequested      = "draw_requested"
	EventDrawAccepted       = "draw_accepted"
	EventDrawRejected       = "draw_rejected"
	EventDrawCancelled      = "draw_cancelled"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReconnected  = "player_reconnected"
	EventPlayerLeft         = "player_left"
	EventRoomDeleted        = "room_deleted"
	EventReconnectSuccess   = "reconnect_success"
	EventRoomPong           = "room_pong"
)

// Broadcaster is the fan-out contract the coordinator publishes through.
// Implementations must deliver synchronously in call order within a room so
// that causally later transitions never overtake earlier ones.
type Broadcaster interface {
	Publish(roomID, event string, data any)
	Target(userID, event string, data any)
	Subscribe(roomID, userID string)
	Unsubscribe(roomID, userID string)
}

// RoomStore is the slice of the persistence layer the coordinator needs.
// *store.Store satisfies it; tests substitute an in-memory fake.
type RoomStore interface {
	GetRoom(ctx context.Context, id string) (store.Room, error)
	FindRoomByUser(ctx context.Context, userID string) (store.Room, error)
	UpdateRoom(ctx context.Context, id string, patch store.RoomPatch) (store.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	RecordResult(ctx context.Context, userID string, won, drew bool) error
	AppendGameHistory(ctx context.Context, rec store.GameRecord) error
}

type JoinSuccessPayload struct {
	Room  store.Room     `json:"room"`
	State *game.Snapshot `json:"state,omitempty"`
}

type PlayerJoinedPayload struct {
	Player store.Seat `json:"player"`
	Room   store.Room `json:"room"`
}

type RoomPayload struct {
	Room store.Room `json:"room"`
}

type ReadyStatusPayload struct {
	UserID  string `json:"userId"`
	IsReady bool   `json:"isReady"`
}

type GameStartPayload struct {
	Board              [][]game.Mark        `json:"board"`
	Turn               game.Mark            `json:"turn"`
	CurrentPlayerIndex int                  `json:"currentPlayerIndex"`
	Marks              map[string]game.Mark `json:"playerMarks"`
	TurnTimeLimit      int                  `json:"turnTimeLimit"`
	TurnStartTime      time.Time            `json:"turnStartTime"`
}

type TurnStartedPayload struct {
	Turn          game.Mark `json:"turn"`
	TurnTimeLimit int       `json:"turnTimeLimit"`
	TurnStartTime time.Time `json:"turnStartTime"`
}

type MoveMadePayload struct {
	Board              [][]game.Mark `json:"board"`
	Turn               game.Mark     `json:"turn"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	LastMove           game.Move     `json:"lastMove"`
}

type MoveUndonePayload struct {
	Board              [][]game.Mark `json:"board"`
	Turn               game.Mark     `json:"turn"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	Removed            []game.Move   `json:"removedMoves"`
}

// GameResult carries the structured ending tags clients use to tell a
// voluntary ending from a forced one.
type GameResult struct {
	WinnerID    string    `json:"winnerId,omitempty"`
	WinnerMark  game.Mark `json:"winnerMark,omitempty"`
	IsDraw      bool      `json:"isDraw"`
	IsTimeout   bool      `json:"isTimeout"`
	IsSurrender bool      `json:"isSurrender"`
	Reason      string    `json:"reason"`
}

type GameEndPayload struct {
	Result GameResult    `json:"result"`
	Board  [][]game.Mark `json:"board"`
}

type GameResetPayload struct {
	Board              [][]game.Mark `json:"board"`
	Turn               game.Mark     `json:"turn"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	TurnStartTime      time.Time     `json:"turnStartTime"`
}

type DrawPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

type PresencePayload struct {
	UserID       string `json:"userId"`
	GraceSeconds int    `json:"graceSeconds,omitempty"`
}

type PlayerLeftPayload struct {
	UserID string     `json:"userId"`
	Room   store.Room `json:"room"`
}

type RoomDeletedPayload struct {
	RoomID string `json:"roomId"`
}

type ReconnectSuccessPayload struct {
	Room  store.Room     `json:"room"`
	State *game.Snapshot `json:"state,omitempty"`
}

type RoomPongPayload struct {
	TimeRemaining int `json:"timeRemaining"`
}
