package game

import "errors"

var (
	ErrOutOfBounds   = errors.New("out_of_bounds")
	ErrCellOccupied  = errors.New("cell_occupied")
	ErrNothingToUndo = errors.New("nothing_to_undo")
)
