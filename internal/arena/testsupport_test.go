package arena

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"caro-arena/internal/bot"
	"caro-arena/internal/game"
	"caro-arena/internal/store"
)

// fakeStore is an in-memory RoomStore. All methods are synchronous, so the
// persist-then-commit ordering of the coordinator is observable through it.
type fakeStore struct {
	mu        sync.Mutex
	rooms     map[string]store.Room
	stats     map[string]store.PlayerStats
	history   []store.GameRecord
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms: map[string]store.Room{},
		stats: map[string]store.PlayerStats{},
	}
}

func (f *fakeStore) put(r store.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[r.ID] = r
}

func (f *fakeStore) room(t *testing.T, id string) store.Room {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		t.Fatalf("room %s not in store", id)
	}
	return r
}

func (f *fakeStore) GetRoom(_ context.Context, id string) (store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return store.Room{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) FindRoomByUser(_ context.Context, userID string) (store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		for _, s := range r.Seats {
			if s.UserID == userID {
				return r, nil
			}
		}
	}
	return store.Room{}, store.ErrNotFound
}

// failUpdates makes every subsequent UpdateRoom return err until cleared
// with nil.
func (f *fakeStore) failUpdates(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

func (f *fakeStore) UpdateRoom(_ context.Context, id string, patch store.RoomPatch) (store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return store.Room{}, f.updateErr
	}
	r, ok := f.rooms[id]
	if !ok {
		return store.Room{}, store.ErrNotFound
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.Seats != nil {
		r.Seats = *patch.Seats
	}
	if patch.HostID != nil {
		r.HostID = *patch.HostID
	}
	if patch.TurnTimeLimit != nil {
		r.TurnTimeLimit = *patch.TurnTimeLimit
	}
	if patch.FirstMark != nil {
		r.FirstMark = *patch.FirstMark
	}
	if patch.Marks != nil {
		r.Marks = *patch.Marks
	}
	if patch.BoardSize != nil {
		r.BoardSize = *patch.BoardSize
	}
	f.rooms[id] = r
	return r, nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeStore) RecordResult(_ context.Context, userID string, won, drew bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.stats[userID]
	st.UserID = userID
	switch {
	case drew:
		st.Draws++
	case won:
		st.Wins++
	default:
		st.Losses++
	}
	f.stats[userID] = st
	return nil
}

func (f *fakeStore) AppendGameHistory(_ context.Context, rec store.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, rec)
	return nil
}

func (f *fakeStore) statsOf(userID string) store.PlayerStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[userID]
}

func (f *fakeStore) historyLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

type busEvent struct {
	Key   string // room id for publishes, user id for targets
	Event string
	Data  any
}

// fakeBus records every publish and targeted send in order.
type fakeBus struct {
	mu        sync.Mutex
	published []busEvent
	targeted  []busEvent
}

func newFakeBus() *fakeBus { return &fakeBus{} }

func (b *fakeBus) Publish(roomID, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, busEvent{Key: roomID, Event: event, Data: data})
}

func (b *fakeBus) Target(userID, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targeted = append(b.targeted, busEvent{Key: userID, Event: event, Data: data})
}

func (b *fakeBus) Subscribe(string, string)   {}
func (b *fakeBus) Unsubscribe(string, string) {}

func (b *fakeBus) publishedCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.published {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBus) lastPublished(event string) (busEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].Event == event {
			return b.published[i], true
		}
	}
	return busEvent{}, false
}

func (b *fakeBus) lastTargeted(event string) (busEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.targeted) - 1; i >= 0; i-- {
		if b.targeted[i].Event == event {
			return b.targeted[i], true
		}
	}
	return busEvent{}, false
}

// scriptedBot plays a fixed sequence, falling back to the first empty cell.
type scriptedBot struct {
	mu    sync.Mutex
	moves []bot.Position
	next  int
}

func (s *scriptedBot) BestMove(board [][]game.Mark, _ game.Mark, _ bot.Difficulty, _ *game.Move) bot.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.moves) {
		p := s.moves[s.next]
		s.next++
		return p
	}
	for r := range board {
		for c := range board[r] {
			if board[r][c] == game.MarkNone {
				return bot.Position{Row: r, Col: c}
			}
		}
	}
	return bot.Position{}
}

type testRig struct {
	coord *Coordinator
	store *fakeStore
	bus   *fakeBus
	clock *clockwork.FakeClock
	bot   *scriptedBot
}

func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()
	if cfg.HeartbeatTimeout == 0 {
		// Keep liveness out of the way unless a test opts in.
		cfg.HeartbeatTimeout = time.Hour
	}
	st := newFakeStore()
	bus := newFakeBus()
	clock := clockwork.NewFakeClock()
	sb := &scriptedBot{}
	return &testRig{
		coord: NewCoordinator(st, bus, sb, clock, cfg),
		store: st,
		bus:   bus,
		clock: clock,
		bot:   sb,
	}
}

// waitFor polls for a condition after a fake clock advance; timer callbacks
// run on their own goroutines, matching time.AfterFunc.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settle gives stray timer goroutines a chance to run before asserting
// that nothing happened.
func settle() { time.Sleep(25 * time.Millisecond) }

func twoSeatRoom(id string) store.Room {
	return store.Room{
		ID:       id,
		Name:     "friendly",
		HostID:   "alice",
		MaxSeats: 2,
		Status:   store.RoomStatusWaiting,
		Seats: []store.Seat{
			{UserID: "alice", Username: "Alice", IsHost: true, SessionID: "sess-a"},
			{UserID: "bob", Username: "Bob", IsReady: true, SessionID: "sess-b"},
		},
		TurnTimeLimit: 30,
		FirstMark:     game.MarkX,
		Marks:         map[string]game.Mark{"alice": game.MarkX, "bob": game.MarkO},
		BoardSize:     15,
	}
}

func soloRoom(id string) store.Room {
	return store.Room{
		ID:       id,
		Name:     "solo",
		HostID:   "alice",
		MaxSeats: 2,
		Status:   store.RoomStatusWaiting,
		Seats: []store.Seat{
			{UserID: "alice", Username: "Alice", IsHost: true, SessionID: "sess-a"},
		},
		TurnTimeLimit: 30,
		FirstMark:     game.MarkX,
		Marks:         map[string]game.Mark{"alice": game.MarkX},
		BoardSize:     15,
		VsEngine:      true,
		EngineLevel:   "easy",
	}
}

func startedRoom(t *testing.T, rig *testRig, room store.Room) {
	t.Helper()
	rig.store.put(room)
	if err := rig.coord.Start(context.Background(), room.ID, room.HostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
}
