package apperror

import "errors"

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrNoLegalMove  = errors.New("no legal move left")

	ErrSlotTaken   = errors.New("slot is already taken")
	ErrInvalidSlot = errors.New("invalid slot index")

	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("user is already in another room")
	ErrNotInRoom     = errors.New("user is not in this room")

	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("password must be at least 4 alphanumeric characters")
	ErrWrongPassword   = errors.New("wrong password")
	ErrInvalidToken    = errors.New("invalid token")
)
