package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"caro-arena/internal/arena"
)

// Server upgrades connections, authenticates them and dispatches inbound
// events to the coordinator. Every rejection goes only to the initiating
// connection as a targeted error event.
type Server struct {
	coord    *arena.Coordinator
	hub      *Hub
	auth     TokenVerifier
	upgrader websocket.Upgrader
}

func NewServer(coord *arena.Coordinator, hub *Hub, auth TokenVerifier) *Server {
	return &Server{
		coord:    coord,
		hub:      hub,
		auth:     auth,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, username, err := s.auth.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(conn, userID, username, arena.NewSessionID())
	s.hub.register(client)
	go client.writeLoop()
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		current := s.hub.unregister(c)
		c.close()
		if current {
			s.coord.Disconnect(context.Background(), c.userID, c.sessionID)
		}
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		s.handleMessage(c, env)
	}
}

// handleMessage runs one inbound event to completion. A panic in a handler
// must never take the process down or leave the room wedged, so it is
// caught here and surfaced as a generic targeted error.
func (s *Server) handleMessage(c *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("type", env.Type).Str("user_id", c.userID).Msg("handler panic")
			s.hub.Target(c.userID, errorEventFor(env.Type), ErrorPayload{Message: "internal error"})
		}
	}()

	ctx := context.Background()
	var err error

	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Join(ctx, m.RoomID, c.userID, c.username, c.sessionID, m.Password)
		}
	case TypeLeaveRoom:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Leave(ctx, m.RoomID, c.userID)
		}
	case TypePlayerReady:
		var m ReadyMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Ready(ctx, m.RoomID, c.userID, m.IsReady)
		}
	case TypeStartGame:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Start(ctx, m.RoomID, c.userID)
		}
	case TypeMakeMove:
		var m MoveMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Move(ctx, m.RoomID, c.userID, m.Row, m.Col)
		}
	case TypeUndoMove:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Undo(ctx, m.RoomID, c.userID)
		}
	case TypeResetGame:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Reset(ctx, m.RoomID, c.userID)
		}
	case TypeRequestDraw:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.RequestDraw(ctx, m.RoomID, c.userID)
		}
	case TypeRespondDraw:
		var m RespondDrawMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.RespondDraw(ctx, m.RoomID, c.userID, m.Accept)
		}
	case TypeCancelDraw:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.CancelDraw(ctx, m.RoomID, c.userID)
		}
	case TypeSurrenderGame:
		var m RoomMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.Surrender(ctx, m.RoomID, c.userID)
		}
	case TypePingRoom:
		var m RoomMessage
		if decode(env.Data, &m) == nil {
			_ = s.coord.Ping(ctx, m.RoomID, c.userID)
		}
		return
	case TypeUpdateSettings:
		var m SettingsMessage
		if err = decode(env.Data, &m); err == nil {
			err = s.coord.UpdateSettings(ctx, m.RoomID, c.userID, m.SettingsPatch)
		}
	case TypeCheckReconnect:
		err = s.coord.CheckReconnect(ctx, c.userID, c.sessionID)
	default:
		return
	}

	if err != nil {
		s.hub.Target(c.userID, errorEventFor(env.Type), ErrorPayload{Message: err.Error()})
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrMalformedPayload
	}
	return json.Unmarshal(raw, v)
}
