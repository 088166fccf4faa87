package arena

import (
	"context"
	"fmt"
	"time"

	"caro-arena/internal/bot"
	"caro-arena/internal/game"
	"caro-arena/internal/store"
)

// Move validates and applies one move for the seat whose turn it is. On a
// continuing game the turn pointer advances and the clock rearms before any
// broadcast; in solo rooms the engine replies within the same call.
func (c *Coordinator) Move(ctx context.Context, roomID, userID string, row, col int) error {
	s := c.registry.get(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("get room: %w", err)
	}
	if room.Status != store.RoomStatusPlaying || s.match == nil {
		return ErrNotPlaying
	}
	mover, ok := currentSeat(room, s.match)
	if !ok || mover.UserID != userID {
		return ErrNotYourTurn
	}

	outcome, err := s.match.Place(row, col, mover.Mark, userID, c.clock.Now())
	if err != nil {
		return err
	}
	return c.afterPlace(ctx, s, room, mover, outcome)
}

// afterPlace broadcasts the accepted move and runs the resulting
// transition. Caller holds s.mu and has already verified the room is
// playing.
func (c *Coordinator) afterPlace(ctx context.Context, s *roomSession, room store.Room, mover turnSeat, outcome game.Outcome) error {
	m := s.match
	last := *m.LastMove()

	switch outcome {
	case game.Won:
		c.bus.Publish(room.ID, EventMoveMade, MoveMadePayload{
			Board:              m.Board,
			Turn:               m.Turn,
			CurrentPlayerIndex: m.CurrentIdx,
			LastMove:           last,
		})
		return c.endMatch(ctx, s, room, ending{
			winnerID:   mover.UserID,
			winnerMark: mover.Mark,
			loserID:    opponentOf(room, mover.UserID),
			reason:     "five in a row",
		})
	case game.Drawn:
		c.bus.Publish(room.ID, EventMoveMade, MoveMadePayload{
			Board:              m.Board,
			Turn:               m.Turn,
			CurrentPlayerIndex: m.CurrentIdx,
			LastMove:           last,
		})
		return c.endMatch(ctx, s, room, ending{isDraw: true, reason: "board full"})
	}

	m.Advance(len(turnOrder(room)), c.clock.Now())
	c.armTurnClock(s, room)

	limit := int(c.turnLimit(room) / time.Second)
	c.bus.Publish(room.ID, EventMoveMade, MoveMadePayload{
		Board:              m.Board,
		Turn:               m.Turn,
		CurrentPlayerIndex: m.CurrentIdx,
		LastMove:           last,
	})
	c.bus.Publish(room.ID, EventTurnStarted, TurnStartedPayload{
		Turn:          m.Turn,
		TurnTimeLimit: limit,
		TurnStartTime: m.TurnStartedAt,
	})

	if next, ok := currentSeat(room, m); ok && next.UserID == EngineUserID {
		return c.playEngineTurn(ctx, s, room)
	}
	return nil
}

// playEngineTurn makes the computer opponent's reply. The engine is pure
// and synchronous, so the reply lands in the same handler invocation as the
// human move that triggered it. Caller holds s.mu.
func (c *Coordinator) playEngineTurn(ctx context.Context, s *roomSession, room store.Room) error {
	m := s.match
	if m == nil {
		return nil
	}
	seat, ok := currentSeat(room, m)
	if !ok || seat.UserID != EngineUserID {
		return nil
	}

	difficulty := bot.Difficulty(room.EngineLevel)
	if difficulty == "" {
		difficulty = bot.DifficultyMedium
	}
	pos := c.engine.BestMove(m.Board, seat.Mark, difficulty, m.LastMove())
	outcome, err := m.Place(pos.Row, pos.Col, seat.Mark, EngineUserID, c.clock.Now())
	if err != nil {
		return fmt.Errorf("engine move at (%d,%d): %w", pos.Row, pos.Col, err)
	}
	return c.afterPlace(ctx, s, room, seat, outcome)
}

// Undo removes the trailing move, or the trailing pair in a solo room so
// the engine's reply disappears together with the human move it answered.
// The host may rewind any move; everyone else only their own last one.
func (c *Coordinator) Undo(ctx context.Context, roomID, userID string) error {
	s := c.registry.get(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("get room: %w", err)
	}
	if room.SeatOf(userID) < 0 {
		return ErrNotInRoom
	}
	if room.Status != store.RoomStatusPlaying || s.match == nil {
		return ErrNotPlaying
	}

	n := 1
	if room.VsEngine && len(room.ConnectedSeats()) == 1 {
		n = 2
	}
	if room.HostID != userID {
		last := s.match.LastMove()
		if last == nil || last.UserID != userID {
			return ErrNotYourMove
		}
	}
	undone, err := s.match.Undo(n, len(turnOrder(room)))
	if err != nil {
		return err
	}
	s.match.TurnStartedAt = c.clock.Now()
	c.armTurnClock(s, room)

	c.bus.Publish(roomID, EventMoveUndone, MoveUndonePayload{
		Board:              s.match.Board,
		Turn:               s.match.Turn,
		CurrentPlayerIndex: s.match.CurrentIdx,
		Removed:            undone,
	})
	c.bus.Publish(roomID, EventTurnStarted, TurnStartedPayload{
		Turn:          s.match.Turn,
		TurnTimeLimit: int(c.turnLimit(room) / time.Second),
		TurnStartTime: s.match.TurnStartedAt,
	})
	return nil
}

// Reset replaces the board mid-match with a fresh one, keeping seats and
// settings. Host only.
func (c *Coordinator) Reset(ctx context.Context, roomID, userID string) error {
	s := c.registry.get(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("get room: %w", err)
	}
	if room.HostID != userID {
		return ErrNotHost
	}
	if room.Status != store.RoomStatusPlaying || s.match == nil {
		return ErrNotPlaying
	}

	s.match.Reset()
	s.match.TurnStartedAt = c.clock.Now()
	order := turnOrder(room)
	for i, ts := range order {
		if ts.Mark == s.match.Turn {
			s.match.CurrentIdx = i
			break
		}
	}
	s.draw = nil
	c.armTurnClock(s, room)

	c.bus.Publish(roomID, EventGameReset, GameResetPayload{
		Board:              s.match.Board,
		Turn:               s.match.Turn,
		CurrentPlayerIndex: s.match.CurrentIdx,
		TurnStartTime:      s.match.TurnStartedAt,
	})
	c.bus.Publish(roomID, EventTurnStarted, TurnStartedPayload{
		Turn:          s.match.Turn,
		TurnTimeLimit: int(c.turnLimit(room) / time.Second),
		TurnStartTime: s.match.TurnStartedAt,
	})

	if next, ok := currentSeat(room, s.match); ok && next.UserID == EngineUserID {
		return c.playEngineTurn(ctx, s, room)
	}
	return nil
}
