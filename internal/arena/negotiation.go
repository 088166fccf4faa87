package arena

import (
	"context"
	"fmt"

	"caro-arena/internal/store"
)

// RequestDraw opens the room's single draw negotiation. The engine never
// negotiates, so in solo rooms the offer is rejected on the spot.
func (c *Coordinator) RequestDraw(ctx context.Context, roomID, userID string) error {
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
	idx := room.SeatOf(userID)
	if idx < 0 {
		return ErrNotInRoom
	}
	if room.Status != store.RoomStatusPlaying || s.match == nil {
		return ErrNotPlaying
	}
	if s.draw != nil {
		return ErrDrawPending
	}

	s.draw = &drawOffer{
		requesterID: userID,
		username:    room.Seats[idx].Username,
		at:          c.clock.Now(),
	}
	c.bus.Publish(roomID, EventDrawRequested, DrawPayload{UserID: userID, Username: s.draw.username})

	if room.VsEngine {
		s.draw = nil
		c.bus.Publish(roomID, EventDrawRejected, DrawPayload{UserID: EngineUserID})
	}
	return nil
}

// RespondDraw accepts or rejects the pending offer. The requester may not
// answer their own offer.
func (c *Coordinator) RespondDraw(ctx context.Context, roomID, userID string, accept bool) error {
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
	if s.draw == nil {
		return ErrNoDrawPending
	}
	if s.draw.requesterID == userID {
		return ErrDrawOwnRequest
	}

	if !accept {
		s.draw = nil
		c.bus.Publish(roomID, EventDrawRejected, DrawPayload{UserID: userID})
		return nil
	}

	// Commit first: if the status flip fails to persist, the offer stays
	// pending and nobody hears an accept for a match that kept going.
	if err := c.endMatch(ctx, s, room, ending{isDraw: true, reason: "draw agreed"}); err != nil {
		return err
	}
	c.bus.Publish(roomID, EventDrawAccepted, DrawPayload{UserID: userID})
	return nil
}

// CancelDraw withdraws a pending offer. Only the requester may cancel.
func (c *Coordinator) CancelDraw(ctx context.Context, roomID, userID string) error {
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
	if s.draw == nil {
		return ErrNoDrawPending
	}
	if s.draw.requesterID != userID {
		return ErrNotRequester
	}

	s.draw = nil
	c.bus.Publish(roomID, EventDrawCancelled, DrawPayload{UserID: userID})
	return nil
}
