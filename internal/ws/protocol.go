package ws

import (
	"encoding/json"

	"caro-arena/internal/arena"
)

// Inbound event types.
const (
	TypeJoinRoom       = "join_room"
	TypeLeaveRoom      = "leave_room"
	TypePlayerReady    = "player_ready"
	TypeStartGame      = "start_game"
	TypeMakeMove       = "make_move"
	TypeUndoMove       = "undo_move"
	TypeResetGame      = "reset_game"
	TypeRequestDraw    = "request_draw"
	TypeRespondDraw    = "respond_draw"
	TypeCancelDraw     = "cancel_draw"
	TypeSurrenderGame  = "surrender_game"
	TypePingRoom       = "ping_room"
	TypeCheckReconnect = "check_reconnect"
	TypeUpdateSettings = "update_room_settings"
)

// Envelope is the outer shape of every frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type JoinRoomMessage struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

type RoomMessage struct {
	RoomID string `json:"roomId"`
}

type ReadyMessage struct {
	RoomID  string `json:"roomId"`
	IsReady bool   `json:"isReady"`
}

type MoveMessage struct {
	RoomID string `json:"roomId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type RespondDrawMessage struct {
	RoomID string `json:"roomId"`
	Accept bool   `json:"accept"`
}

type SettingsMessage struct {
	RoomID string `json:"roomId"`
	arena.SettingsPatch
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// errorEventFor maps an inbound event type to the targeted error event the
// initiating client receives when its request is rejected.
func errorEventFor(inbound string) string {
	switch inbound {
	case TypeJoinRoom:
		return "join_error"
	case TypeLeaveRoom:
		return "leave_error"
	case TypePlayerReady:
		return "ready_error"
	case TypeStartGame:
		return "start_error"
	case TypeMakeMove:
		return "move_error"
	case TypeUndoMove:
		return "undo_error"
	case TypeResetGame:
		return "reset_error"
	case TypeRequestDraw, TypeRespondDraw, TypeCancelDraw:
		return "draw_error"
	case TypeSurrenderGame:
		return "surrender_error"
	case TypeUpdateSettings:
		return "settings_error"
	default:
		return "error"
	}
}
