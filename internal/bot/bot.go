// Package bot picks moves for the built-in opponent. It is a pure function
// from the arena's point of view: board in, position out, no shared state.
package bot

import (
	"caro-arena/internal/game"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Finder is the narrow interface the arena consumes.
type Finder interface {
	BestMove(board [][]game.Mark, mark game.Mark, difficulty Difficulty, last *game.Move) Position
}

// Engine is a minimax move finder with alpha-beta pruning. Candidate moves
// are restricted to empty cells within candidateRadius of an existing stone,
// which keeps the branching factor workable on a 15x15 board.
type Engine struct{}

func New() *Engine { return &Engine{} }

const candidateRadius = 2

func depthFor(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 3
	default:
		return 2
	}
}

func (e *Engine) BestMove(board [][]game.Mark, mark game.Mark, difficulty Difficulty, last *game.Move) Position {
	size := len(board)
	candidates := candidateMoves(board)
	if len(candidates) == 0 {
		return Position{Row: size / 2, Col: size / 2}
	}

	maxDepth := depthFor(difficulty)
	opp := mark.Other()

	best := candidates[0]
	bestScore := minScore
	for _, pos := range candidates {
		board[pos.Row][pos.Col] = mark
		score := minimax(board, mark, opp, 1, maxDepth, false, minScore, maxScore)
		board[pos.Row][pos.Col] = game.MarkNone
		if score > bestScore {
			bestScore = score
			best = pos
		}
	}
	return best
}

const (
	winScore = 1_000_000
	minScore = -1 << 40
	maxScore = 1 << 40
)

func minimax(board [][]game.Mark, me, opp game.Mark, depth, maxDepth int, maximizing bool, alpha, beta int) int {
	if w := lineWinner(board); w != game.MarkNone {
		if w == me {
			return winScore - depth
		}
		return -winScore + depth
	}
	if depth >= maxDepth {
		return evaluate(board, me, opp)
	}

	candidates := candidateMoves(board)
	if len(candidates) == 0 {
		return evaluate(board, me, opp)
	}

	if maximizing {
		best := minScore
		for _, pos := range candidates {
			board[pos.Row][pos.Col] = me
			score := minimax(board, me, opp, depth+1, maxDepth, false, alpha, beta)
			board[pos.Row][pos.Col] = game.MarkNone
			if score > best {
				best = score
			}
			if score > alpha {
				alpha = score
			}
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := maxScore
	for _, pos := range candidates {
		board[pos.Row][pos.Col] = opp
		score := minimax(board, me, opp, depth+1, maxDepth, true, alpha, beta)
		board[pos.Row][pos.Col] = game.MarkNone
		if score < best {
			best = score
		}
		if score < beta {
			beta = score
		}
		if beta <= alpha {
			break
		}
	}
	return best
}

// candidateMoves returns empty cells within candidateRadius of any stone.
func candidateMoves(board [][]game.Mark) []Position {
	size := len(board)
	seen := make(map[int]struct{})
	var out []Position
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if board[r][c] == game.MarkNone {
				continue
			}
			for dr := -candidateRadius; dr <= candidateRadius; dr++ {
				for dc := -candidateRadius; dc <= candidateRadius; dc++ {
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= size || nc < 0 || nc >= size {
						continue
					}
					if board[nr][nc] != game.MarkNone {
						continue
					}
					key := nr*size + nc
					if _, ok := seen[key]; ok {
						continue
					}
					seen[key] = struct{}{}
					out = append(out, Position{Row: nr, Col: nc})
				}
			}
		}
	}
	return out
}
