package ws

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeDecode(t *testing.T) {
	raw := []byte(`{"type":"make_move","data":{"roomId":"r1","row":7,"col":8}}`)
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != TypeMakeMove {
		t.Fatalf("type = %s", env.Type)
	}
	var m MoveMessage
	if err := decode(env.Data, &m); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if m.RoomID != "r1" || m.Row != 7 || m.Col != 8 {
		t.Fatalf("decoded move = %+v", m)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	var m RoomMessage
	if err := decode(nil, &m); err != ErrMalformedPayload {
		t.Fatalf("got %v, want ErrMalformedPayload", err)
	}
}

func TestErrorEventMapping(t *testing.T) {
	cases := map[string]string{
		TypeJoinRoom:       "join_error",
		TypeMakeMove:       "move_error",
		TypeUndoMove:       "undo_error",
		TypeResetGame:      "reset_error",
		TypeStartGame:      "start_error",
		TypePlayerReady:    "ready_error",
		TypeRequestDraw:    "draw_error",
		TypeRespondDraw:    "draw_error",
		TypeCancelDraw:     "draw_error",
		TypeSurrenderGame:  "surrender_error",
		TypeLeaveRoom:      "leave_error",
		TypeUpdateSettings: "settings_error",
		"unknown":          "error",
	}
	for inbound, want := range cases {
		if got := errorEventFor(inbound); got != want {
			t.Fatalf("errorEventFor(%s) = %s, want %s", inbound, got, want)
		}
	}
}
