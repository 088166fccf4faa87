package store_test

import (
	"context"
	"testing"
	"time"

	"caro-arena/internal/game"
	"caro-arena/internal/store"
	"caro-arena/internal/testutil"
)

func TestRecordResultUpserts(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := st.RecordResult(ctx, "alice", true, false); err != nil {
		t.Fatalf("record win: %v", err)
	}
	if err := st.RecordResult(ctx, "alice", false, false); err != nil {
		t.Fatalf("record loss: %v", err)
	}
	if err := st.RecordResult(ctx, "alice", false, true); err != nil {
		t.Fatalf("record draw: %v", err)
	}

	stats, err := st.GetStats(ctx, "alice")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Wins != 1 || stats.Losses != 1 || stats.Draws != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	// Absent players read as zeroes.
	empty, err := st.GetStats(ctx, "nobody")
	if err != nil {
		t.Fatalf("get empty stats: %v", err)
	}
	if empty.Wins != 0 || empty.Losses != 0 || empty.Draws != 0 {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.RecordResult(ctx, "champ", true, false); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := st.RecordResult(ctx, "runner", true, false); err != nil {
		t.Fatalf("record: %v", err)
	}

	board, err := st.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "champ" || board[1].UserID != "runner" {
		t.Fatalf("leaderboard = %+v", board)
	}
}

func TestGameHistoryRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := store.GameRecord{
		RoomID:   "room-1",
		WinnerID: "alice",
		LoserID:  "bob",
		Reason:   "five in a row",
		Moves: []game.Move{
			{Row: 7, Col: 7, Mark: game.MarkX, UserID: "alice", At: time.Now().UTC()},
			{Row: 7, Col: 8, Mark: game.MarkO, UserID: "bob", At: time.Now().UTC()},
		},
	}
	if err := st.AppendGameHistory(ctx, rec); err != nil {
		t.Fatalf("append history: %v", err)
	}
	// Engine wins persist with no winner row reference.
	if err := st.AppendGameHistory(ctx, store.GameRecord{RoomID: "room-1", LoserID: "alice", Reason: "turn time expired"}); err != nil {
		t.Fatalf("append engine win: %v", err)
	}

	games, err := st.ListGameHistory(ctx, "room-1", 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("history = %d entries, want 2", len(games))
	}
	var withMoves store.GameRecord
	for _, g := range games {
		if len(g.Moves) > 0 {
			withMoves = g
		}
	}
	if withMoves.WinnerID != "alice" || len(withMoves.Moves) != 2 || withMoves.Moves[0].Mark != game.MarkX {
		t.Fatalf("round trip lost data: %+v", withMoves)
	}
}
