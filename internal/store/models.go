package store

import (
	"time"

	"caro-arena/internal/game"
)

// Rooms cycle waiting -> playing -> waiting; a finished room is kept for a
// rematch and only ever leaves the table by deletion.
const (
	RoomStatusWaiting = "waiting"
	RoomStatusPlaying = "playing"
)

// Seat is one occupied slot in a room. Seats live inside the room document
// so membership changes are a single atomic row update.
type Seat struct {
	UserID         string     `json:"userId"`
	Username       string     `json:"username"`
	IsHost         bool       `json:"isHost"`
	IsReady        bool       `json:"isReady"`
	Disconnected   bool       `json:"isDisconnected"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
	SessionID      string     `json:"sessionId"`
	JoinedAt       time.Time  `json:"joinedAt"`
}

// Room is the durable source of truth for membership and settings. Board
// state lives only in the arena registry while a match is running.
type Room struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	PasswordHash  string               `json:"-"`
	HostID        string               `json:"hostId"`
	MaxSeats      int                  `json:"maxSeats"`
	Status        string               `json:"status"`
	Seats         []Seat               `json:"players"`
	TurnTimeLimit int                  `json:"turnTimeLimit"`
	FirstMark     game.Mark            `json:"firstTurn"`
	Marks         map[string]game.Mark `json:"playerMarks"`
	BoardSize     int                  `json:"boardSize"`
	VsEngine      bool                 `json:"vsEngine"`
	EngineLevel   string               `json:"engineLevel"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// HasPassword lets clients see a lock icon without leaking the hash.
func (r Room) HasPassword() bool { return r.PasswordHash != "" }

// SeatOf returns the seat index for a user, or -1.
func (r Room) SeatOf(userID string) int {
	for i, s := range r.Seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

// ConnectedSeats returns the seats not currently flagged as disconnected.
func (r Room) ConnectedSeats() []Seat {
	out := make([]Seat, 0, len(r.Seats))
	for _, s := range r.Seats {
		if !s.Disconnected {
			out = append(out, s)
		}
	}
	return out
}

// RoomPatch is a field-granular update; nil fields are left untouched.
type RoomPatch struct {
	Status        *string
	Seats         *[]Seat
	HostID        *string
	TurnTimeLimit *int
	FirstMark     *game.Mark
	Marks         *map[string]game.Mark
	BoardSize     *int
}

type CreateRoomParams struct {
	Name          string
	Password      string
	HostID        string
	HostUsername  string
	MaxSeats      int
	TurnTimeLimit int
	FirstMark     game.Mark
	BoardSize     int
	VsEngine      bool
	EngineLevel   string
}

type PlayerStats struct {
	UserID string `json:"userId"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
}

// GameRecord is one finished playthrough appended to game_history.
type GameRecord struct {
	ID       string      `json:"id"`
	RoomID   string      `json:"roomId"`
	WinnerID string      `json:"winnerId,omitempty"`
	LoserID  string      `json:"loserId,omitempty"`
	IsDraw   bool        `json:"isDraw"`
	Reason   string      `json:"reason"`
	Moves    []game.Move `json:"moves"`
	EndedAt  time.Time   `json:"endedAt"`
}
