package arena

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"caro-arena/internal/game"
)

// drawOffer is the single outstanding negotiation a room may hold.
type drawOffer struct {
	requesterID string
	username    string
	at          time.Time
}

// roomSession aggregates the ephemeral per-room state: the match, the turn
// clock, the liveness and grace timers, and the pending draw offer. Every
// handler for the room locks mu for its whole duration, so store round trips
// for the same room never interleave.
type roomSession struct {
	id string

	mu       sync.Mutex
	match    *game.Match
	turn     timerSlot
	liveness map[string]*timerSlot
	grace    map[string]*timerSlot
	draw     *drawOffer
}

// timerSlot is one cancellable timer handle. Arming bumps gen and stops the
// previous timer; a callback that observes a stale gen must treat itself as
// cancelled, since Stop cannot win a race against a timer that already fired.
type timerSlot struct {
	timer clockwork.Timer
	gen   uint64
}

func (t *timerSlot) arm(clock clockwork.Clock, d time.Duration, fire func(gen uint64)) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = clock.AfterFunc(d, func() { fire(gen) })
}

func (t *timerSlot) disarm() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func newRoomSession(id string) *roomSession {
	return &roomSession{
		id:       id,
		liveness: map[string]*timerSlot{},
		grace:    map[string]*timerSlot{},
	}
}

// stopUserTimers disarms and forgets the liveness and grace timers for one
// user, returning whether a grace timer was pending.
func (s *roomSession) stopUserTimers(userID string) bool {
	if slot, ok := s.liveness[userID]; ok {
		slot.disarm()
		delete(s.liveness, userID)
	}
	pending := false
	if slot, ok := s.grace[userID]; ok {
		slot.disarm()
		delete(s.grace, userID)
		pending = true
	}
	return pending
}

// stopAllTimers disarms everything the session owns.
func (s *roomSession) stopAllTimers() {
	s.turn.disarm()
	for id, slot := range s.liveness {
		slot.disarm()
		delete(s.liveness, id)
	}
	for id, slot := range s.grace {
		slot.disarm()
		delete(s.grace, id)
	}
}

// Registry is the process-wide keyed store of room sessions. Entries are
// created on demand and dropped when their room is deleted.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*roomSession
}

func NewRegistry() *Registry {
	return &Registry{rooms: map[string]*roomSession{}}
}

func (r *Registry) get(roomID string) *roomSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[roomID]
	if !ok {
		s = newRoomSession(roomID)
		r.rooms[roomID] = s
	}
	return s
}

// peek returns the session only if one already exists.
func (r *Registry) peek(roomID string) (*roomSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[roomID]
	return s, ok
}

func (r *Registry) drop(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
