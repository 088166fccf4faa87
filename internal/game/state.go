package game

import "time"

type Mark string

const (
	MarkNone Mark = ""
	MarkX    Mark = "X"
	MarkO    Mark = "O"
)

// Other returns the opposing mark.
func (m Mark) Other() Mark {
	if m == MarkX {
		return MarkO
	}
	return MarkX
}

const (
	DefaultBoardSize = 15
	MaxBoardSize     = 20
	WinLength        = 5
)

type Move struct {
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Mark   Mark      `json:"mark"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

type Outcome int

const (
	Continuing Outcome = iota
	Won
	Drawn
)

// Match is the ephemeral in-progress state for one playthrough: the board,
// the ordered move log, and the turn pointer into the room's seat order.
// The turn pointer is only ever advanced by the caller through Advance so
// that turn change and timer rearm stay a single step from its point of view.
type Match struct {
	Board         [][]Mark  `json:"board"`
	Moves         []Move    `json:"moves"`
	Turn          Mark      `json:"turn"`
	CurrentIdx    int       `json:"currentPlayerIndex"`
	FirstMark     Mark      `json:"firstMark"`
	TurnStartedAt time.Time `json:"turnStartTime"`
}

func NewMatch(size int, first Mark) *Match {
	if size <= 0 || size > MaxBoardSize {
		size = DefaultBoardSize
	}
	if first != MarkO {
		first = MarkX
	}
	board := make([][]Mark, size)
	for i := range board {
		board[i] = make([]Mark, size)
	}
	return &Match{
		Board:     board,
		Turn:      first,
		FirstMark: first,
	}
}

func (m *Match) Size() int { return len(m.Board) }

// Place writes mark at (row, col) and appends the move to the log. It does
// not advance the turn pointer. The returned outcome tells the caller whether
// the move won the match, filled the board, or play continues.
func (m *Match) Place(row, col int, mark Mark, userID string, at time.Time) (Outcome, error) {
	size := m.Size()
	if row < 0 || row >= size || col < 0 || col >= size {
		return Continuing, ErrOutOfBounds
	}
	if m.Board[row][col] != MarkNone {
		return Continuing, ErrCellOccupied
	}
	m.Board[row][col] = mark
	m.Moves = append(m.Moves, Move{Row: row, Col: col, Mark: mark, UserID: userID, At: at})

	if winAt(m.Board, row, col, WinLength) {
		return Won, nil
	}
	if len(m.Moves) == size*size {
		return Drawn, nil
	}
	return Continuing, nil
}

// Advance flips the turn mark and moves the pointer to the next seat.
func (m *Match) Advance(seatCount int, now time.Time) {
	if seatCount < 1 {
		seatCount = 1
	}
	m.CurrentIdx = (m.CurrentIdx + 1) % seatCount
	m.Turn = m.Turn.Other()
	m.TurnStartedAt = now
}

// Undo pops the last n moves, clears their cells and rewinds the turn
// pointer by n mod seatCount.
func (m *Match) Undo(n, seatCount int) ([]Move, error) {
	if n <= 0 || len(m.Moves) < n {
		return nil, ErrNothingToUndo
	}
	if seatCount < 1 {
		seatCount = 1
	}
	undone := make([]Move, 0, n)
	for i := 0; i < n; i++ {
		last := m.Moves[len(m.Moves)-1]
		m.Moves = m.Moves[:len(m.Moves)-1]
		m.Board[last.Row][last.Col] = MarkNone
		undone = append(undone, last)
	}
	m.CurrentIdx = ((m.CurrentIdx-n)%seatCount + seatCount) % seatCount
	if n%2 == 1 {
		m.Turn = m.Turn.Other()
	}
	return undone, nil
}

// Reset replaces the board and log with a fresh match preserving size and
// the configured first mover.
func (m *Match) Reset() {
	size := m.Size()
	fresh := NewMatch(size, m.FirstMark)
	*m = *fresh
}

// LastMove returns the most recent move, or nil for an empty board.
func (m *Match) LastMove() *Move {
	if len(m.Moves) == 0 {
		return nil
	}
	mv := m.Moves[len(m.Moves)-1]
	return &mv
}
