package arena

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"caro-arena/internal/game"
	"caro-arena/internal/store"
)

// ending describes one match termination. Forfeiture-style endings set
// loserID and leave winnerID empty; endMatch derives the winner from the
// turn order.
type ending struct {
	winnerID    string
	winnerMark  game.Mark
	loserID     string
	reason      string
	isDraw      bool
	isTimeout   bool
	isSurrender bool
	removeLoser bool
}

// opponentOf returns the other participant in the turn order, or "".
func opponentOf(room store.Room, userID string) string {
	for _, ts := range turnOrder(room) {
		if ts.UserID != userID {
			return ts.UserID
		}
	}
	return ""
}

// endMatch is the one path every termination goes through: win, draw,
// surrender, turn timeout, liveness eviction and grace expiry. It is
// idempotent per match because it refuses any room not currently playing,
// so the first of two racing triggers wins and the second becomes a no-op.
// Persisted mutations land before the in-memory state is touched, and all
// broadcasts happen last, in commit order. Caller holds s.mu.
func (c *Coordinator) endMatch(ctx context.Context, s *roomSession, room store.Room, e ending) error {
	if room.Status != store.RoomStatusPlaying {
		return ErrNotPlaying
	}

	if !e.isDraw && e.winnerID == "" {
		e.winnerID = opponentOf(room, e.loserID)
		e.winnerMark = room.Marks[e.winnerID]
		if e.winnerID == EngineUserID {
			e.winnerMark = room.Marks[room.HostID].Other()
		}
	}

	seats := make([]store.Seat, 0, len(room.Seats))
	var removed *store.Seat
	for _, seat := range room.Seats {
		if e.removeLoser && seat.UserID == e.loserID {
			removed = &seat
			continue
		}
		seat.IsReady = false
		seats = append(seats, seat)
	}

	if len(seats) == 0 {
		if err := c.store.DeleteRoom(ctx, room.ID); err != nil && err != store.ErrNotFound {
			return fmt.Errorf("delete room: %w", err)
		}
		s.stopAllTimers()
		s.match = nil
		s.draw = nil
		c.bus.Publish(room.ID, EventRoomDeleted, RoomDeletedPayload{RoomID: room.ID})
		c.registry.drop(room.ID)
		return nil
	}

	patch := store.RoomPatch{Seats: &seats}
	status := store.RoomStatusWaiting
	patch.Status = &status
	if removed != nil && room.HostID == removed.UserID {
		seats[0].IsHost = true
		hostID := seats[0].UserID
		patch.HostID = &hostID
	}
	updated, err := c.store.UpdateRoom(ctx, room.ID, patch)
	if err != nil {
		return fmt.Errorf("persist game end: %w", err)
	}

	c.recordOutcome(ctx, room, e)

	var board [][]game.Mark
	var moves []game.Move
	if s.match != nil {
		board = s.match.Board
		moves = s.match.Moves
	}
	rec := store.GameRecord{
		ID:      store.NewID(),
		RoomID:  room.ID,
		IsDraw:  e.isDraw,
		Reason:  e.reason,
		Moves:   moves,
		EndedAt: c.clock.Now(),
	}
	if e.winnerID != EngineUserID {
		rec.WinnerID = e.winnerID
	}
	if e.loserID != EngineUserID {
		rec.LoserID = e.loserID
	}
	if err := c.store.AppendGameHistory(ctx, rec); err != nil {
		log.Error().Err(err).Str("room_id", room.ID).Msg("append game history")
	}

	s.stopAllTimers()
	s.match = nil
	s.draw = nil

	c.bus.Publish(room.ID, EventGameEnd, GameEndPayload{
		Result: GameResult{
			WinnerID:    e.winnerID,
			WinnerMark:  e.winnerMark,
			IsDraw:      e.isDraw,
			IsTimeout:   e.isTimeout,
			IsSurrender: e.isSurrender,
			Reason:      e.reason,
		},
		Board: board,
	})
	if removed != nil {
		c.bus.Publish(room.ID, EventPlayerLeft, PlayerLeftPayload{UserID: removed.UserID, Room: updated})
		c.bus.Unsubscribe(room.ID, removed.UserID)
	}
	c.bus.Publish(room.ID, EventRoomUpdate, RoomPayload{Room: updated})
	return nil
}

// recordOutcome updates player stats. Failures here are logged and do not
// fail the transition; the match is already over either way.
func (c *Coordinator) recordOutcome(ctx context.Context, room store.Room, e ending) {
	if e.isDraw {
		for _, seat := range room.Seats {
			if err := c.store.RecordResult(ctx, seat.UserID, false, true); err != nil {
				log.Error().Err(err).Str("user_id", seat.UserID).Msg("record draw")
			}
		}
		return
	}
	if e.winnerID != "" && e.winnerID != EngineUserID {
		if err := c.store.RecordResult(ctx, e.winnerID, true, false); err != nil {
			log.Error().Err(err).Str("user_id", e.winnerID).Msg("record win")
		}
	}
	if e.loserID != "" && e.loserID != EngineUserID {
		if err := c.store.RecordResult(ctx, e.loserID, false, false); err != nil {
			log.Error().Err(err).Str("user_id", e.loserID).Msg("record loss")
		}
	}
}

// Surrender ends the match in the opponent's favor.
func (c *Coordinator) Surrender(ctx context.Context, roomID, userID string) error {
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
	if room.Status != store.RoomStatusPlaying {
		return ErrNotPlaying
	}
	return c.endMatch(ctx, s, room, ending{
		loserID:     userID,
		isSurrender: true,
		reason:      "player surrendered",
	})
}
