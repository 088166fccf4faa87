package arena

import "errors"

var (
	ErrRoomNotFound   = errors.New("room_not_found")
	ErrRoomFull       = errors.New("room_full")
	ErrWrongPassword  = errors.New("wrong_password")
	ErrNotInRoom      = errors.New("not_in_room")
	ErrNotHost        = errors.New("not_host")
	ErrNotPlaying     = errors.New("game_not_started")
	ErrAlreadyPlaying = errors.New("game_in_progress")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrNotYourMove    = errors.New("cannot_undo_opponent_move")
	ErrSeatsNotReady  = errors.New("players_not_ready")
	ErrNotEnoughSeats = errors.New("not_enough_players")
	ErrDrawPending    = errors.New("draw_already_pending")
	ErrNoDrawPending  = errors.New("no_draw_pending")
	ErrDrawOwnRequest = errors.New("cannot_respond_own_draw")
	ErrNotRequester   = errors.New("not_draw_requester")
	ErrBadTurnLimit   = errors.New("invalid_turn_time_limit")
	ErrBadBoardSize   = errors.New("invalid_board_size")
	ErrBadFirstMark   = errors.New("invalid_first_mark")
	ErrBadMarks       = errors.New("invalid_mark_assignment")
)
