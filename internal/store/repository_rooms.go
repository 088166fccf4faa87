package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"caro-arena/internal/game"
)

const roomColumns = `id, name, COALESCE(password_hash, ''), host_id, max_seats, status,
	seats, turn_time_limit, first_mark, marks, board_size, vs_engine, engine_level, created_at`

func (s *Store) CreateRoom(ctx context.Context, p CreateRoomParams) (Room, error) {
	id := NewID()
	if p.MaxSeats <= 0 {
		p.MaxSeats = 2
	}
	if p.TurnTimeLimit <= 0 {
		p.TurnTimeLimit = 30
	}
	if p.FirstMark != game.MarkO {
		p.FirstMark = game.MarkX
	}
	if p.BoardSize <= 0 {
		p.BoardSize = game.DefaultBoardSize
	}
	if p.EngineLevel == "" {
		p.EngineLevel = "medium"
	}

	var passwordHash *string
	if p.Password != "" {
		h, err := HashPassword(p.Password)
		if err != nil {
			return Room{}, fmt.Errorf("hash room password: %w", err)
		}
		passwordHash = &h
	}

	seats := []Seat{{
		UserID:    p.HostID,
		Username:  p.HostUsername,
		IsHost:    true,
		SessionID: NewID(),
	}}
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return Room{}, err
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO rooms (id, name, password_hash, host_id, max_seats, status, seats,
			turn_time_limit, first_mark, marks, board_size, vs_engine, engine_level)
		VALUES ($1, $2, $3, $4, $5, 'waiting', $6, $7, $8, '{}', $9, $10, $11)
		RETURNING `+roomColumns,
		id, p.Name, passwordHash, p.HostID, p.MaxSeats, seatsJSON,
		p.TurnTimeLimit, string(p.FirstMark), p.BoardSize, p.VsEngine, p.EngineLevel)
	return scanRoom(row)
}

func (s *Store) GetRoom(ctx context.Context, id string) (Room, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

// FindRoomByUser returns the room holding a seat for the user. A user may
// hold at most one seat system-wide, which CreateRoom/UpdateRoom preserve.
func (s *Store) FindRoomByUser(ctx context.Context, userID string) (Room, error) {
	needle, err := json.Marshal([]map[string]string{{"userId": userID}})
	if err != nil {
		return Room{}, err
	}
	row := s.Pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE seats @> $1::jsonb LIMIT 1`, needle)
	return scanRoom(row)
}

func (s *Store) ListRooms(ctx context.Context, status string, limit int) ([]Room, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + roomColumns + ` FROM rooms`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRoom applies a field-granular patch in one statement. Conflicting
// fields are never written by two flows at once, so last-writer-wins per
// field is acceptable.
func (s *Store) UpdateRoom(ctx context.Context, id string, patch RoomPatch) (Room, error) {
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Seats != nil {
		b, err := json.Marshal(*patch.Seats)
		if err != nil {
			return Room{}, err
		}
		add("seats", b)
	}
	if patch.HostID != nil {
		add("host_id", *patch.HostID)
	}
	if patch.TurnTimeLimit != nil {
		add("turn_time_limit", *patch.TurnTimeLimit)
	}
	if patch.FirstMark != nil {
		add("first_mark", string(*patch.FirstMark))
	}
	if patch.Marks != nil {
		b, err := json.Marshal(*patch.Marks)
		if err != nil {
			return Room{}, err
		}
		add("marks", b)
	}
	if patch.BoardSize != nil {
		add("board_size", *patch.BoardSize)
	}
	if len(sets) == 0 {
		return s.GetRoom(ctx, id)
	}

	q := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + roomColumns
	row := s.Pool.QueryRow(ctx, q, args...)
	return scanRoom(row)
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	var seatsJSON, marksJSON []byte
	var firstMark string
	err := row.Scan(&r.ID, &r.Name, &r.PasswordHash, &r.HostID, &r.MaxSeats, &r.Status,
		&seatsJSON, &r.TurnTimeLimit, &firstMark, &marksJSON, &r.BoardSize,
		&r.VsEngine, &r.EngineLevel, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, err
	}
	r.FirstMark = game.Mark(firstMark)
	if err := json.Unmarshal(seatsJSON, &r.Seats); err != nil {
		return Room{}, fmt.Errorf("decode seats: %w", err)
	}
	if err := json.Unmarshal(marksJSON, &r.Marks); err != nil {
		return Room{}, fmt.Errorf("decode marks: %w", err)
	}
	return r, nil
}
