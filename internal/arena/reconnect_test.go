package arena

import (
	"context"
	"testing"
	"time"

	"caro-arena/internal/store"
)

func TestDisconnectGraceForfeit(t *testing.T) {
	rig := newTestRig(t, Config{ReconnectGrace: 20 * time.Second})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.TurnTimeLimit = 300
	startedRoom(t, rig, room)

	// Alice plays, then bob's transport drops.
	if err := rig.coord.Move(ctx, "r1", "alice", 7, 7); err != nil {
		t.Fatalf("move: %v", err)
	}
	rig.coord.Disconnect(ctx, "bob", "sess-b")

	if rig.bus.publishedCount(EventPlayerDisconnected) != 1 {
		t.Fatalf("expected player_disconnected broadcast")
	}
	got := rig.store.room(t, "r1")
	if seat := got.Seats[got.SeatOf("bob")]; !seat.Disconnected || seat.DisconnectedAt == nil {
		t.Fatalf("bob not flagged disconnected: %+v", seat)
	}

	rig.clock.Advance(20 * time.Second)
	waitFor(t, func() bool { return rig.bus.publishedCount(EventGameEnd) == 1 }, "grace expiry forfeit")

	ev, _ := rig.bus.lastPublished(EventGameEnd)
	result := ev.Data.(GameEndPayload).Result
	if result.WinnerID != "alice" || !result.IsTimeout {
		t.Fatalf("unexpected result: %+v", result)
	}
	got = rig.store.room(t, "r1")
	if got.Status != store.RoomStatusWaiting {
		t.Fatalf("status = %s, want waiting", got.Status)
	}
	if got.SeatOf("bob") >= 0 {
		t.Fatalf("bob's seat should be removed after grace expiry")
	}
	if st := rig.store.statsOf("alice"); st.Wins != 1 {
		t.Fatalf("alice wins = %d, want 1", st.Wins)
	}
}

func TestReconnectDuringGraceCancelsForfeit(t *testing.T) {
	rig := newTestRig(t, Config{ReconnectGrace: 20 * time.Second})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.TurnTimeLimit = 300
	startedRoom(t, rig, room)

	rig.coord.Disconnect(ctx, "bob", "sess-b")
	rig.clock.Advance(10 * time.Second)

	if err := rig.coord.CheckReconnect(ctx, "bob", "sess-b2"); err != nil {
		t.Fatalf("check reconnect: %v", err)
	}
	ev, ok := rig.bus.lastTargeted(EventReconnectSuccess)
	if !ok || ev.Key != "bob" {
		t.Fatalf("expected targeted reconnect_success for bob")
	}
	payload := ev.Data.(ReconnectSuccessPayload)
	if payload.State == nil {
		t.Fatalf("reconnect mid-match must carry the board snapshot")
	}
	if rig.bus.publishedCount(EventPlayerReconnected) != 1 {
		t.Fatalf("expected player_reconnected broadcast")
	}

	got := rig.store.room(t, "r1")
	seat := got.Seats[got.SeatOf("bob")]
	if seat.Disconnected || seat.SessionID != "sess-b2" {
		t.Fatalf("seat not resumed: %+v", seat)
	}

	// The grace timer was cleared; its old deadline passes without effect.
	rig.clock.Advance(15 * time.Second)
	settle()
	if got := rig.bus.publishedCount(EventGameEnd); got != 0 {
		t.Fatalf("cancelled grace timer fired: %d game_end broadcasts", got)
	}
}

func TestStaleSocketDisconnectIgnored(t *testing.T) {
	rig := newTestRig(t, Config{})
	ctx := context.Background()
	startedRoom(t, rig, twoSeatRoom("r1"))

	// A superseded connection goes away; the seat's live session survives.
	rig.coord.Disconnect(ctx, "bob", "sess-b-old")
	if rig.bus.publishedCount(EventPlayerDisconnected) != 0 {
		t.Fatalf("stale socket must not mark the seat disconnected")
	}
	got := rig.store.room(t, "r1")
	if got.Seats[got.SeatOf("bob")].Disconnected {
		t.Fatalf("seat flagged disconnected by stale socket")
	}
}

func TestLastConnectedDisconnectDeletesRoom(t *testing.T) {
	rig := newTestRig(t, Config{})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.Seats = room.Seats[:1]
	rig.store.put(room)

	rig.coord.Disconnect(ctx, "alice", "sess-a")

	if _, err := rig.store.GetRoom(ctx, "r1"); err != store.ErrNotFound {
		t.Fatalf("room should be deleted, got err=%v", err)
	}
	if rig.bus.publishedCount(EventRoomDeleted) != 1 {
		t.Fatalf("expected room_deleted broadcast")
	}
	if rig.coord.Registry().Len() != 0 {
		t.Fatalf("registry entry should be dropped")
	}
}

func TestRejoinWhilePlayingReturnsSnapshot(t *testing.T) {
	rig := newTestRig(t, Config{ReconnectGrace: 20 * time.Second})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.TurnTimeLimit = 300
	startedRoom(t, rig, room)

	if err := rig.coord.Move(ctx, "r1", "alice", 7, 7); err != nil {
		t.Fatalf("move: %v", err)
	}
	rig.coord.Disconnect(ctx, "bob", "sess-b")

	// A fresh join_room from bob races the reconnect probe; it must be
	// treated as a reconnect, password unchecked, seat count unchanged.
	if err := rig.coord.Join(ctx, "r1", "bob", "Bob", "sess-b3", ""); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	ev, ok := rig.bus.lastTargeted(EventJoinSuccess)
	if !ok || ev.Key != "bob" {
		t.Fatalf("expected targeted join_success for bob")
	}
	payload := ev.Data.(JoinSuccessPayload)
	if payload.State == nil || payload.State.Board[7][7] != "X" {
		t.Fatalf("rejoin must carry the live board")
	}
	if got := len(rig.store.room(t, "r1").Seats); got != 2 {
		t.Fatalf("seat count = %d, want 2", got)
	}

	rig.clock.Advance(25 * time.Second)
	settle()
	if got := rig.bus.publishedCount(EventGameEnd); got != 0 {
		t.Fatalf("grace fired after rejoin: %d game_end broadcasts", got)
	}
}
