package game

import "time"

// Snapshot is the JSON view of a match sent to clients on game_start,
// reconnect and explicit state requests.
type Snapshot struct {
	Board              [][]Mark  `json:"board"`
	Turn               Mark      `json:"turn"`
	CurrentPlayerIndex int       `json:"currentPlayerIndex"`
	Moves              []Move    `json:"history"`
	LastMove           *Move     `json:"lastMove,omitempty"`
	TurnStartTime      time.Time `json:"turnStartTime"`
}

func (m *Match) Snapshot() Snapshot {
	return Snapshot{
		Board:              m.Board,
		Turn:               m.Turn,
		CurrentPlayerIndex: m.CurrentIdx,
		Moves:              m.Moves,
		LastMove:           m.LastMove(),
		TurnStartTime:      m.TurnStartedAt,
	}
}
