package arena

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"caro-arena/internal/store"
)

// armTurnClock schedules the forfeiture callback for the seat on turn.
// Arming always cancels the previous handle, so at most one turn timer is
// pending per room. Caller holds s.mu.
func (c *Coordinator) armTurnClock(s *roomSession, room store.Room) {
	s.turn.arm(c.clock, c.turnLimit(room), func(gen uint64) {
		c.onTurnExpiry(s.id, gen)
	})
}

// onTurnExpiry fires when the seat on turn ran out of time. The callback is
// advisory: it re-reads both session and room state and becomes a no-op if
// anything moved since arming.
func (c *Coordinator) onTurnExpiry(roomID string, gen uint64) {
	s, ok := c.registry.peek(roomID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn.gen != gen || s.match == nil {
		return
	}

	ctx := context.Background()
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		if err != store.ErrNotFound {
			log.Error().Err(err).Str("room_id", roomID).Msg("turn expiry lookup")
		}
		return
	}
	if room.Status != store.RoomStatusPlaying {
		return
	}
	seat, ok := currentSeat(room, s.match)
	if !ok {
		return
	}

	err = c.endMatch(ctx, s, room, ending{
		loserID:   seat.UserID,
		isTimeout: true,
		reason:    "turn time expired",
	})
	if err != nil && err != ErrNotPlaying {
		log.Error().Err(err).Str("room_id", roomID).Msg("turn timeout forfeit")
	}
}

// armLiveness rearms the eviction timer for one seat. Caller holds s.mu.
func (c *Coordinator) armLiveness(s *roomSession, roomID, userID string) {
	slot, ok := s.liveness[userID]
	if !ok {
		slot = &timerSlot{}
		s.liveness[userID] = slot
	}
	slot.arm(c.clock, c.cfg.HeartbeatTimeout, func(gen uint64) {
		c.onLivenessExpiry(roomID, userID, gen)
	})
}

// onLivenessExpiry fires when a connected client stopped heartbeating
// mid-match. Unresponsive is treated the same as gone: forfeit and evict.
func (c *Coordinator) onLivenessExpiry(roomID, userID string, gen uint64) {
	s, ok := c.registry.peek(roomID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.liveness[userID]
	if !ok || slot.gen != gen {
		return
	}
	delete(s.liveness, userID)
	c.evict(context.Background(), s, roomID, userID, "player unresponsive")
}

// armGrace starts the reconnect window after a transport loss. Caller
// holds s.mu.
func (c *Coordinator) armGrace(s *roomSession, roomID, userID string) {
	slot, ok := s.grace[userID]
	if !ok {
		slot = &timerSlot{}
		s.grace[userID] = slot
	}
	slot.arm(c.clock, c.cfg.ReconnectGrace, func(gen uint64) {
		c.onGraceExpiry(roomID, userID, gen)
	})
}

func (c *Coordinator) onGraceExpiry(roomID, userID string, gen uint64) {
	s, ok := c.registry.peek(roomID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.grace[userID]
	if !ok || slot.gen != gen {
		return
	}
	delete(s.grace, userID)
	c.evict(context.Background(), s, roomID, userID, "player disconnected")
}

// evict removes a seat after its grace or liveness window closed,
// forfeiting the match first if one is running. Caller holds s.mu.
func (c *Coordinator) evict(ctx context.Context, s *roomSession, roomID, userID, reason string) {
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		if err != store.ErrNotFound {
			log.Error().Err(err).Str("room_id", roomID).Msg("evict lookup")
		}
		return
	}
	if room.SeatOf(userID) < 0 {
		return
	}

	if room.Status == store.RoomStatusPlaying && s.match != nil {
		err = c.endMatch(ctx, s, room, ending{
			loserID:     userID,
			isTimeout:   true,
			removeLoser: true,
			reason:      reason,
		})
	} else {
		err = c.removeSeat(ctx, s, room, userID)
	}
	if err != nil && err != ErrNotPlaying {
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("evict seat")
	}
}

// Ping is the liveness heartbeat. It rearms the eviction timer and answers
// with the time remaining on the current turn. Outside a match it is a
// harmless no-op.
func (c *Coordinator) Ping(ctx context.Context, roomID, userID string) error {
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
		return nil
	}

	c.armLiveness(s, roomID, userID)

	remaining := c.turnLimit(room) - c.clock.Since(s.match.TurnStartedAt)
	if remaining < 0 {
		remaining = 0
	}
	c.bus.Target(userID, EventRoomPong, RoomPongPayload{TimeRemaining: int(remaining / time.Second)})
	return nil
}

// Disconnect handles raw transport loss for a user's active seat. A stale
// socket (session id no longer on the seat) is ignored; the last connected
// player leaving tears the room down immediately since nothing useful can
// reconnect to an empty room.
func (c *Coordinator) Disconnect(ctx context.Context, userID, sessionID string) {
	found, err := c.store.FindRoomByUser(ctx, userID)
	if err != nil {
		if err != store.ErrNotFound {
			log.Error().Err(err).Str("user_id", userID).Msg("disconnect lookup")
		}
		return
	}

	s := c.registry.get(found.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := c.store.GetRoom(ctx, found.ID)
	if err != nil {
		return
	}
	idx := room.SeatOf(userID)
	if idx < 0 {
		return
	}
	if sessionID != "" && room.Seats[idx].SessionID != sessionID {
		return
	}

	connected := room.ConnectedSeats()
	if len(connected) == 1 && connected[0].UserID == userID {
		if err := c.store.DeleteRoom(ctx, room.ID); err != nil && err != store.ErrNotFound {
			log.Error().Err(err).Str("room_id", room.ID).Msg("delete empty room")
			return
		}
		s.stopAllTimers()
		s.match = nil
		s.draw = nil
		c.bus.Publish(room.ID, EventRoomDeleted, RoomDeletedPayload{RoomID: room.ID})
		c.bus.Unsubscribe(room.ID, userID)
		c.registry.drop(room.ID)
		return
	}

	now := c.clock.Now()
	seats := append([]store.Seat{}, room.Seats...)
	seats[idx].Disconnected = true
	seats[idx].DisconnectedAt = &now
	updated, err := c.store.UpdateRoom(ctx, room.ID, store.RoomPatch{Seats: &seats})
	if err != nil {
		log.Error().Err(err).Str("room_id", room.ID).Msg("persist disconnect")
		return
	}

	if slot, ok := s.liveness[userID]; ok {
		slot.disarm()
		delete(s.liveness, userID)
	}
	c.armGrace(s, room.ID, userID)
	c.bus.Unsubscribe(room.ID, userID)
	c.bus.Publish(room.ID, EventPlayerDisconnected, PresencePayload{
		UserID:       userID,
		GraceSeconds: int(c.cfg.ReconnectGrace / time.Second),
	})
	c.bus.Publish(room.ID, EventRoomUpdate, RoomPayload{Room: updated})
}

// CheckReconnect is the client-initiated reconnection probe: if the user
// still holds a seat anywhere, the seat is resumed and the caller gets the
// current room and match snapshot.
func (c *Coordinator) CheckReconnect(ctx context.Context, userID, sessionID string) error {
	found, err := c.store.FindRoomByUser(ctx, userID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrNotInRoom
		}
		return fmt.Errorf("find room: %w", err)
	}

	s := c.registry.get(found.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := c.store.GetRoom(ctx, found.ID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrNotInRoom
		}
		return fmt.Errorf("get room: %w", err)
	}
	idx := room.SeatOf(userID)
	if idx < 0 {
		return ErrNotInRoom
	}
	return c.resumeSeatAs(ctx, s, room, idx, sessionID, EventReconnectSuccess)
}
