package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// RecordResult upserts one player's win/loss/draw counters.
func (s *Store) RecordResult(ctx context.Context, userID string, won, drew bool) error {
	win, loss, draw := 0, 0, 0
	switch {
	case drew:
		draw = 1
	case won:
		win = 1
	default:
		loss = 1
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO player_stats (user_id, wins, losses, draws)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			wins = player_stats.wins + EXCLUDED.wins,
			losses = player_stats.losses + EXCLUDED.losses,
			draws = player_stats.draws + EXCLUDED.draws,
			updated_at = now()`,
		userID, win, loss, draw)
	return err
}

// GetStats reads one player's counters. A player with no recorded games
// reads as zeroes.
func (s *Store) GetStats(ctx context.Context, userID string) (PlayerStats, error) {
	st := PlayerStats{UserID: userID}
	err := s.Pool.QueryRow(ctx,
		`SELECT wins, losses, draws FROM player_stats WHERE user_id = $1`, userID).
		Scan(&st.Wins, &st.Losses, &st.Draws)
	if err == pgx.ErrNoRows {
		return PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return PlayerStats{}, err
	}
	return st, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT user_id, wins, losses, draws FROM player_stats
		ORDER BY wins DESC, draws DESC, losses ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlayerStats{}
	for rows.Next() {
		var st PlayerStats
		if err := rows.Scan(&st.UserID, &st.Wins, &st.Losses, &st.Draws); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// AppendGameHistory records a finished playthrough with its full move log.
func (s *Store) AppendGameHistory(ctx context.Context, rec GameRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO game_history (id, room_id, winner_id, loser_id, is_draw, reason, moves)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		rec.ID, rec.RoomID, rec.WinnerID, rec.LoserID, rec.IsDraw, rec.Reason, moves)
	return err
}

func (s *Store) ListGameHistory(ctx context.Context, roomID string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, room_id, COALESCE(winner_id, ''), COALESCE(loser_id, ''), is_draw, reason, moves, ended_at
		FROM game_history WHERE room_id = $1
		ORDER BY ended_at DESC LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRecord{}
	for rows.Next() {
		var rec GameRecord
		var moves []byte
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.WinnerID, &rec.LoserID,
			&rec.IsDraw, &rec.Reason, &moves, &rec.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(moves, &rec.Moves); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
