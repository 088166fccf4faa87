package bot

import "caro-arena/internal/game"

// evaluate scores the whole board from me's perspective by sliding a
// five-cell window along every row, column and diagonal. Mixed windows are
// worthless; near-complete opponent runs are weighted heavier than our own
// so the engine prefers blocking over building.
func evaluate(board [][]game.Mark, me, opp game.Mark) int {
	size := len(board)
	win := game.WinLength
	score := 0

	for r := 0; r < size; r++ {
		for c := 0; c+win <= size; c++ {
			score += scoreWindow(board, r, c, 0, 1, me, opp)
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := 0; c < size; c++ {
			score += scoreWindow(board, r, c, 1, 0, me, opp)
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := 0; c+win <= size; c++ {
			score += scoreWindow(board, r, c, 1, 1, me, opp)
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := win - 1; c < size; c++ {
			score += scoreWindow(board, r, c, 1, -1, me, opp)
		}
	}
	return score
}

func scoreWindow(board [][]game.Mark, row, col, dr, dc int, me, opp game.Mark) int {
	mine, theirs := 0, 0
	for i := 0; i < game.WinLength; i++ {
		switch board[row+i*dr][col+i*dc] {
		case me:
			mine++
		case opp:
			theirs++
		}
	}
	if mine > 0 && theirs > 0 {
		return 0
	}
	switch mine {
	case 4:
		return 50
	case 3:
		return 10
	case 2:
		return 5
	}
	switch theirs {
	case 4:
		return -100
	case 3:
		return -50
	case 2:
		return -10
	}
	return 0
}

// lineWinner scans the full board for a completed run and returns its mark.
func lineWinner(board [][]game.Mark) game.Mark {
	size := len(board)
	win := game.WinLength
	check := func(row, col, dr, dc int) game.Mark {
		first := board[row][col]
		if first == game.MarkNone {
			return game.MarkNone
		}
		for i := 1; i < win; i++ {
			if board[row+i*dr][col+i*dc] != first {
				return game.MarkNone
			}
		}
		return first
	}
	for r := 0; r < size; r++ {
		for c := 0; c+win <= size; c++ {
			if w := check(r, c, 0, 1); w != game.MarkNone {
				return w
			}
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := 0; c < size; c++ {
			if w := check(r, c, 1, 0); w != game.MarkNone {
				return w
			}
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := 0; c+win <= size; c++ {
			if w := check(r, c, 1, 1); w != game.MarkNone {
				return w
			}
		}
	}
	for r := 0; r+win <= size; r++ {
		for c := win - 1; c < size; c++ {
			if w := check(r, c, 1, -1); w != game.MarkNone {
				return w
			}
		}
	}
	return game.MarkNone
}
