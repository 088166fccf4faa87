package arena

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"caro-arena/internal/bot"
	"caro-arena/internal/game"
	"caro-arena/internal/store"
)

// EngineUserID is the synthetic seat the computer opponent plays from in
// solo rooms. It never appears in Room.Seats and never accrues stats.
const EngineUserID = "engine"

const (
	minTurnTimeLimitSec = 10
	maxTurnTimeLimitSec = 300
)

type Config struct {
	TurnTimeLimit    time.Duration
	HeartbeatTimeout time.Duration
	ReconnectGrace   time.Duration
	BoardSize        int
}

func (c *Config) applyDefaults() {
	if c.TurnTimeLimit <= 0 {
		c.TurnTimeLimit = 30 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 30 * time.Second
	}
	if c.ReconnectGrace <= 0 {
		c.ReconnectGrace = 20 * time.Second
	}
	if c.BoardSize <= 0 {
		c.BoardSize = game.DefaultBoardSize
	}
}

// Coordinator is the room lifecycle orchestrator: the only writer to both
// the durable Room document and the in-memory session registry. One method
// per inbound client event. Methods return a sentinel error for the
// transport layer to deliver as a targeted error event; accepted transitions
// are broadcast before the method returns.
type Coordinator struct {
	store    RoomStore
	bus      Broadcaster
	engine   bot.Finder
	clock    clockwork.Clock
	cfg      Config
	registry *Registry

	mu       sync.Mutex
	joinKeys map[string]struct{}
}

func NewCoordinator(st RoomStore, bus Broadcaster, engine bot.Finder, clock clockwork.Clock, cfg Config) *Coordinator {
	cfg.applyDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		store:    st,
		bus:      bus,
		engine:   engine,
		clock:    clock,
		cfg:      cfg,
		registry: NewRegistry(),
		joinKeys: map[string]struct{}{},
	}
}

// Registry exposes the session registry for introspection in tests.
func (c *Coordinator) Registry() *Registry { return c.registry }

// turnSeat is one entry of the turn order: the room's seats in list order,
// with the engine appended as a phantom second seat in solo rooms.
type turnSeat struct {
	UserID   string
	Username string
	Mark     game.Mark
}

func turnOrder(room store.Room) []turnSeat {
	order := make([]turnSeat, 0, len(room.Seats)+1)
	for _, s := range room.Seats {
		order = append(order, turnSeat{UserID: s.UserID, Username: s.Username, Mark: room.Marks[s.UserID]})
	}
	if room.VsEngine {
		hostMark := room.Marks[room.HostID]
		if hostMark == game.MarkNone {
			hostMark = game.MarkX
		}
		order = append(order, turnSeat{UserID: EngineUserID, Username: "Engine", Mark: hostMark.Other()})
	}
	return order
}

func currentSeat(room store.Room, m *game.Match) (turnSeat, bool) {
	order := turnOrder(room)
	if m == nil || m.CurrentIdx < 0 || m.CurrentIdx >= len(order) {
		return turnSeat{}, false
	}
	return order[m.CurrentIdx], true
}

func (c *Coordinator) turnLimit(room store.Room) time.Duration {
	if room.TurnTimeLimit > 0 {
		return time.Duration(room.TurnTimeLimit) * time.Second
	}
	return c.cfg.TurnTimeLimit
}

func (c *Coordinator) boardSize(room store.Room) int {
	if room.BoardSize > 0 {
		return room.BoardSize
	}
	return c.cfg.BoardSize
}

// NewSessionID mints the per-connection identifier stored on a seat so a
// stale socket's disconnect cannot evict the seat's newer connection.
func NewSessionID() string { return uuid.NewString() }

// Join seats the user in the room, or resumes an existing seat. A user
// holds at most one active seat system-wide, so any other seat is released
// first. Re-joining while already seated is treated as a reconnect: no
// password check, no duplicate seat, no player_joined broadcast. Concurrent
// duplicate joins for the same (user, room) collapse into one.
func (c *Coordinator) Join(ctx context.Context, roomID, userID, username, sessionID, password string) error {
	key := userID + "|" + roomID
	c.mu.Lock()
	if _, inFlight := c.joinKeys[key]; inFlight {
		c.mu.Unlock()
		return nil
	}
	c.joinKeys[key] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.joinKeys, key)
		c.mu.Unlock()
	}()

	if other, err := c.store.FindRoomByUser(ctx, userID); err == nil && other.ID != roomID {
		if err := c.Leave(ctx, other.ID, userID); err != nil {
			log.Warn().Err(err).Str("room_id", other.ID).Str("user_id", userID).Msg("auto leave previous room")
		}
	}

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

	if idx := room.SeatOf(userID); idx >= 0 {
		return c.resumeSeatAs(ctx, s, room, idx, sessionID, EventJoinSuccess)
	}

	if room.Status != store.RoomStatusWaiting {
		return ErrAlreadyPlaying
	}
	// The engine holds the second slot in a solo room.
	if room.VsEngine {
		return ErrRoomFull
	}
	if len(room.Seats) >= room.MaxSeats {
		return ErrRoomFull
	}
	if room.HasPassword() && !store.CheckPassword(room.PasswordHash, password) {
		return ErrWrongPassword
	}

	seat := store.Seat{
		UserID:    userID,
		Username:  username,
		SessionID: sessionID,
		JoinedAt:  c.clock.Now(),
	}
	seats := append(append([]store.Seat{}, room.Seats...), seat)
	patch := store.RoomPatch{Seats: &seats}
	if len(room.Seats) == 0 {
		seat.IsHost = true
		seats[len(seats)-1] = seat
		hostID := userID
		patch.HostID = &hostID
	}
	updated, err := c.store.UpdateRoom(ctx, roomID, patch)
	if err != nil {
		return fmt.Errorf("persist join: %w", err)
	}

	c.bus.Subscribe(roomID, userID)
	c.bus.Target(userID, EventJoinSuccess, JoinSuccessPayload{Room: updated})
	c.bus.Publish(roomID, EventPlayerJoined, PlayerJoinedPayload{Player: seat, Room: updated})
	c.bus.Publish(roomID, EventRoomUpdate, RoomPayload{Room: updated})
	return nil
}

// resumeSeatAs handles a join or a reconnect probe from a user who already
// holds a seat; the targeted success event differs between the two. Caller
// holds s.mu.
func (c *Coordinator) resumeSeatAs(ctx context.Context, s *roomSession, room store.Room, idx int, sessionID, event string) error {
	wasDisconnected := room.Seats[idx].Disconnected

	seats := append([]store.Seat{}, room.Seats...)
	seats[idx].Disconnected = false
	seats[idx].DisconnectedAt = nil
	seats[idx].SessionID = sessionID
	updated, err := c.store.UpdateRoom(ctx, room.ID, store.RoomPatch{Seats: &seats})
	if err != nil {
		return fmt.Errorf("persist reconnect: %w", err)
	}

	userID := seats[idx].UserID
	s.stopUserTimers(userID)
	c.bus.Subscribe(room.ID, userID)

	var snap *game.Snapshot
	if s.match != nil {
		v := s.match.Snapshot()
		snap = &v
		c.armLiveness(s, room.ID, userID)
	}
	if event == EventReconnectSuccess {
		c.bus.Target(userID, event, ReconnectSuccessPayload{Room: updated, State: snap})
	} else {
		c.bus.Target(userID, event, JoinSuccessPayload{Room: updated, State: snap})
	}
	if wasDisconnected {
		c.bus.Publish(room.ID, EventPlayerReconnected, PresencePayload{UserID: userID})
		c.bus.Publish(room.ID, EventRoomUpdate, RoomPayload{Room: updated})
	}
	return nil
}

// Leave releases the user's seat. Leaving mid-match forfeits it first, so
// the remaining seat gets the win before the membership change lands.
func (c *Coordinator) Leave(ctx context.Context, roomID, userID string) error {
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

	if room.Status == store.RoomStatusPlaying {
		return c.endMatch(ctx, s, room, ending{
			loserID:     userID,
			isSurrender: true,
			removeLoser: true,
			reason:      "player left the game",
		})
	}
	return c.removeSeat(ctx, s, room, userID)
}

// removeSeat drops a seat from a waiting room, promoting a new host or
// deleting the room when nobody remains. Caller holds s.mu.
func (c *Coordinator) removeSeat(ctx context.Context, s *roomSession, room store.Room, userID string) error {
	seats := make([]store.Seat, 0, len(room.Seats))
	for _, seat := range room.Seats {
		if seat.UserID != userID {
			seats = append(seats, seat)
		}
	}
	s.stopUserTimers(userID)

	if len(seats) == 0 {
		if err := c.store.DeleteRoom(ctx, room.ID); err != nil && err != store.ErrNotFound {
			return fmt.Errorf("delete room: %w", err)
		}
		s.stopAllTimers()
		s.match = nil
		s.draw = nil
		c.bus.Publish(room.ID, EventRoomDeleted, RoomDeletedPayload{RoomID: room.ID})
		c.bus.Unsubscribe(room.ID, userID)
		c.registry.drop(room.ID)
		return nil
	}

	patch := store.RoomPatch{Seats: &seats}
	if room.HostID == userID {
		seats[0].IsHost = true
		hostID := seats[0].UserID
		patch.HostID = &hostID
	}
	updated, err := c.store.UpdateRoom(ctx, room.ID, patch)
	if err != nil {
		return fmt.Errorf("persist leave: %w", err)
	}
	c.bus.Publish(room.ID, EventPlayerLeft, PlayerLeftPayload{UserID: userID, Room: updated})
	c.bus.Publish(room.ID, EventRoomUpdate, RoomPayload{Room: updated})
	c.bus.Unsubscribe(room.ID, userID)
	return nil
}

// Ready flips the caller's readiness flag while the room is waiting.
func (c *Coordinator) Ready(ctx context.Context, roomID, userID string, isReady bool) error {
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
	if room.Status != store.RoomStatusWaiting {
		return ErrAlreadyPlaying
	}

	seats := append([]store.Seat{}, room.Seats...)
	seats[idx].IsReady = isReady
	updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{Seats: &seats})
	if err != nil {
		return fmt.Errorf("persist ready: %w", err)
	}
	c.bus.Publish(roomID, EventPlayerReadyStatus, ReadyStatusPayload{UserID: userID, IsReady: isReady})
	c.bus.Publish(roomID, EventRoomUpdate, RoomPayload{Room: updated})
	return nil
}

// Start moves the room from waiting to playing. Host only; every non-host
// seat must be ready; solo rooms start with the single host seat against
// the engine.
func (c *Coordinator) Start(ctx context.Context, roomID, userID string) error {
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
	if room.Status != store.RoomStatusWaiting {
		return ErrAlreadyPlaying
	}
	if !room.VsEngine {
		if len(room.Seats) < 2 {
			return ErrNotEnoughSeats
		}
		for _, seat := range room.Seats {
			if !seat.IsHost && !seat.IsReady {
				return ErrSeatsNotReady
			}
		}
	}

	marks := assignMarks(room)
	status := store.RoomStatusPlaying
	updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{Status: &status, Marks: &marks})
	if err != nil {
		return fmt.Errorf("persist start: %w", err)
	}

	first := updated.FirstMark
	if first == game.MarkNone {
		first = game.MarkX
	}
	m := game.NewMatch(c.boardSize(updated), first)
	m.TurnStartedAt = c.clock.Now()
	order := turnOrder(updated)
	for i, ts := range order {
		if ts.Mark == m.Turn {
			m.CurrentIdx = i
			break
		}
	}
	s.match = m
	s.draw = nil

	c.armTurnClock(s, updated)
	for _, seat := range updated.ConnectedSeats() {
		c.armLiveness(s, roomID, seat.UserID)
	}

	limit := int(c.turnLimit(updated) / time.Second)
	c.bus.Publish(roomID, EventGameStart, GameStartPayload{
		Board:              m.Board,
		Turn:               m.Turn,
		CurrentPlayerIndex: m.CurrentIdx,
		Marks:              marks,
		TurnTimeLimit:      limit,
		TurnStartTime:      m.TurnStartedAt,
	})
	c.bus.Publish(roomID, EventTurnStarted, TurnStartedPayload{
		Turn:          m.Turn,
		TurnTimeLimit: limit,
		TurnStartTime: m.TurnStartedAt,
	})

	if ts, ok := currentSeat(updated, m); ok && ts.UserID == EngineUserID {
		c.playEngineTurn(ctx, s, updated)
	}
	return nil
}

// assignMarks keeps any marks already chosen in settings and fills the
// gaps: host gets X by default, the other seat (or the engine) the opposite.
func assignMarks(room store.Room) map[string]game.Mark {
	marks := map[string]game.Mark{}
	for id, mk := range room.Marks {
		if mk == game.MarkX || mk == game.MarkO {
			marks[id] = mk
		}
	}
	if marks[room.HostID] == game.MarkNone {
		marks[room.HostID] = game.MarkX
		for id, mk := range marks {
			if id != room.HostID && mk == game.MarkX {
				marks[room.HostID] = game.MarkO
			}
		}
	}
	other := marks[room.HostID].Other()
	for _, seat := range room.Seats {
		if seat.UserID == room.HostID {
			continue
		}
		if marks[seat.UserID] == game.MarkNone {
			marks[seat.UserID] = other
		}
	}
	if room.VsEngine {
		marks[EngineUserID] = other
	}
	return marks
}

// SettingsPatch is the host-tunable subset of room settings.
type SettingsPatch struct {
	TurnTimeLimit *int                  `json:"turnTimeLimit,omitempty"`
	FirstMark     *game.Mark            `json:"firstTurn,omitempty"`
	BoardSize     *int                  `json:"boardSize,omitempty"`
	Marks         *map[string]game.Mark `json:"playerMarks,omitempty"`
}

// UpdateSettings lets the host retune the room between matches.
func (c *Coordinator) UpdateSettings(ctx context.Context, roomID, userID string, p SettingsPatch) error {
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
	if room.Status != store.RoomStatusWaiting {
		return ErrAlreadyPlaying
	}

	patch := store.RoomPatch{}
	if p.TurnTimeLimit != nil {
		if *p.TurnTimeLimit < minTurnTimeLimitSec || *p.TurnTimeLimit > maxTurnTimeLimitSec {
			return ErrBadTurnLimit
		}
		patch.TurnTimeLimit = p.TurnTimeLimit
	}
	if p.BoardSize != nil {
		if *p.BoardSize < game.DefaultBoardSize || *p.BoardSize > game.MaxBoardSize {
			return ErrBadBoardSize
		}
		patch.BoardSize = p.BoardSize
	}
	if p.FirstMark != nil {
		if *p.FirstMark != game.MarkX && *p.FirstMark != game.MarkO {
			return ErrBadFirstMark
		}
		patch.FirstMark = p.FirstMark
	}
	if p.Marks != nil {
		taken := map[game.Mark]string{}
		for id, mk := range *p.Marks {
			if mk != game.MarkX && mk != game.MarkO {
				return ErrBadMarks
			}
			if room.SeatOf(id) < 0 && !(room.VsEngine && id == EngineUserID) {
				return ErrBadMarks
			}
			if holder, dup := taken[mk]; dup && holder != id {
				return ErrBadMarks
			}
			taken[mk] = id
		}
		patch.Marks = p.Marks
	}

	updated, err := c.store.UpdateRoom(ctx, roomID, patch)
	if err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	c.bus.Publish(roomID, EventRoomUpdate, RoomPayload{Room: updated})
	return nil
}
