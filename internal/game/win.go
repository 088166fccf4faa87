package game

// winAt reports whether the stone at (row, col) completes a run of winLen
// on any of the four axes through that cell.
func winAt(board [][]Mark, row, col, winLen int) bool {
	rows := len(board)
	if rows == 0 {
		return false
	}
	cols := len(board[0])
	mark := board[row][col]
	if mark == MarkNone {
		return false
	}

	dirs := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1

		r, c := row+d[0], col+d[1]
		for r >= 0 && r < rows && c >= 0 && c < cols && board[r][c] == mark {
			count++
			r += d[0]
			c += d[1]
		}

		r, c = row-d[0], col-d[1]
		for r >= 0 && r < rows && c >= 0 && c < cols && board[r][c] == mark {
			count++
			r -= d[0]
			c -= d[1]
		}

		if count >= winLen {
			return true
		}
	}
	return false
}
