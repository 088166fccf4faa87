package arena

import (
	"context"
	"testing"
	"time"

	"caro-arena/internal/store"
)

func TestTurnClockForfeitsSeatOnTurn(t *testing.T) {
	rig := newTestRig(t, Config{})
	startedRoom(t, rig, twoSeatRoom("r1"))

	rig.clock.Advance(31 * time.Second)
	waitFor(t, func() bool { return rig.bus.publishedCount(EventGameEnd) == 1 }, "turn timeout game_end")

	ev, _ := rig.bus.lastPublished(EventGameEnd)
	result := ev.Data.(GameEndPayload).Result
	if !result.IsTimeout || result.WinnerID != "bob" {
		t.Fatalf("expected bob to win on alice's timeout, got %+v", result)
	}
	if got := rig.store.room(t, "r1").Status; got != store.RoomStatusWaiting {
		t.Fatalf("status = %s, want waiting", got)
	}
}

func TestTurnClockRearmLeavesOnePendingTimer(t *testing.T) {
	rig := newTestRig(t, Config{})
	ctx := context.Background()
	startedRoom(t, rig, twoSeatRoom("r1"))

	// Move at t+10 rearms the clock for bob; the timer from game start
	// must never fire at its original t+30 deadline.
	rig.clock.Advance(10 * time.Second)
	if err := rig.coord.Move(ctx, "r1", "alice", 7, 7); err != nil {
		t.Fatalf("move: %v", err)
	}

	rig.clock.Advance(25 * time.Second) // t+35, past the stale deadline
	settle()
	if got := rig.bus.publishedCount(EventGameEnd); got != 0 {
		t.Fatalf("stale timer fired: %d game_end broadcasts", got)
	}

	rig.clock.Advance(5 * time.Second) // t+40, bob's real deadline
	waitFor(t, func() bool { return rig.bus.publishedCount(EventGameEnd) == 1 }, "rearmed timeout")

	ev, _ := rig.bus.lastPublished(EventGameEnd)
	if result := ev.Data.(GameEndPayload).Result; result.WinnerID != "alice" || !result.IsTimeout {
		t.Fatalf("expected alice to win on bob's timeout, got %+v", result)
	}
}

func TestSurrenderAndStaleTimerAreIdempotent(t *testing.T) {
	rig := newTestRig(t, Config{})
	ctx := context.Background()
	startedRoom(t, rig, twoSeatRoom("r1"))

	if err := rig.coord.Surrender(ctx, "r1", "alice"); err != nil {
		t.Fatalf("surrender: %v", err)
	}
	ev, _ := rig.bus.lastPublished(EventGameEnd)
	if result := ev.Data.(GameEndPayload).Result; !result.IsSurrender || result.WinnerID != "bob" {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The armed turn clock lost the race; firing it must change nothing.
	rig.clock.Advance(time.Minute)
	settle()
	if got := rig.bus.publishedCount(EventGameEnd); got != 1 {
		t.Fatalf("game_end broadcast %d times, want 1", got)
	}
	if st := rig.store.statsOf("bob"); st.Wins != 1 {
		t.Fatalf("bob wins = %d, want exactly 1", st.Wins)
	}

	if err := rig.coord.Surrender(ctx, "r1", "bob"); err != ErrNotPlaying {
		t.Fatalf("second surrender: got %v, want ErrNotPlaying", err)
	}
}

func TestLivenessEvictionAfterSilence(t *testing.T) {
	rig := newTestRig(t, Config{HeartbeatTimeout: 30 * time.Second})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.TurnTimeLimit = 300
	startedRoom(t, rig, room)

	// Alice heartbeats at t+10; bob stays silent.
	rig.clock.Advance(10 * time.Second)
	if err := rig.coord.Ping(ctx, "r1", "alice"); err != nil {
		t.Fatalf("ping: %v", err)
	}
	ev, ok := rig.bus.lastTargeted(EventRoomPong)
	if !ok || ev.Key != "alice" {
		t.Fatalf("expected targeted room_pong for alice")
	}
	if got := ev.Data.(RoomPongPayload).TimeRemaining; got != 290 {
		t.Fatalf("timeRemaining = %d, want 290", got)
	}

	rig.clock.Advance(20 * time.Second) // t+30: bob's liveness window closes
	waitFor(t, func() bool { return rig.bus.publishedCount(EventGameEnd) == 1 }, "liveness eviction")

	end, _ := rig.bus.lastPublished(EventGameEnd)
	if result := end.Data.(GameEndPayload).Result; result.WinnerID != "alice" || !result.IsTimeout {
		t.Fatalf("unexpected result: %+v", result)
	}
	got := rig.store.room(t, "r1")
	if got.SeatOf("bob") >= 0 {
		t.Fatalf("bob should be evicted")
	}
	if got.Status != store.RoomStatusWaiting {
		t.Fatalf("status = %s, want waiting", got.Status)
	}

	// Alice's rearmed window must not have fired with her heartbeat fresh.
	if rig.store.room(t, "r1").SeatOf("alice") < 0 {
		t.Fatalf("alice should keep her seat")
	}
}

func TestHeartbeatKeepsRearming(t *testing.T) {
	rig := newTestRig(t, Config{HeartbeatTimeout: 30 * time.Second})
	ctx := context.Background()
	room := twoSeatRoom("r1")
	room.TurnTimeLimit = 300
	startedRoom(t, rig, room)

	for i := 0; i < 4; i++ {
		rig.clock.Advance(20 * time.Second)
		for _, user := range []string{"alice", "bob"} {
			if err := rig.coord.Ping(ctx, "r1", user); err != nil {
				t.Fatalf("ping %s: %v", user, err)
			}
		}
	}
	settle()
	if got := rig.bus.publishedCount(EventGameEnd); got != 0 {
		t.Fatalf("heartbeating players were evicted: %d game_end broadcasts", got)
	}
}
