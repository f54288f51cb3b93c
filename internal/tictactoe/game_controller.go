package tictactoe

import (
	"fmt"
	"math/rand/v2"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

// Picker returns a uniformly distributed index in [0, n).
type Picker func(n int) int

// RandomPicker is the default Picker for robot moves.
func RandomPicker(n int) int {
	return rand.IntN(n) //nolint: gosec // it's ok
}

// ApplyMove places the mark of the current turn on cell and advances the game.
// On error the input status is returned unchanged.
func ApplyMove(status entity.GameStatus, cell int) (entity.GameStatus, error) {
	if err := ValidateMove(status, cell); err != nil {
		return status, fmt.Errorf("invalid move: %w", err)
	}

	status.Board[cell] = status.Turn

	switch {
	// a line needs at least five marks on the board
	case status.TurnCount > 3 && status.HasLine():
		status.Progress = entity.ProgressWin
	case status.TurnCount == entity.BoardSize-1:
		status.Progress = entity.ProgressDraw
	default:
		status.Progress = entity.ProgressPlaying
		status.TurnCount++
		status.Turn = status.TurnCount % 2
	}

	return status, nil
}

// ValidateMove reports why cell cannot be played in status, or nil.
func ValidateMove(status entity.GameStatus, cell int) error {
	if !status.IsPlaying() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(status.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if status.Board[cell] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	return nil
}

func IsRobotTurn(status entity.GameStatus) bool {
	return entity.IsRobot(status.PlayersID[status.Turn])
}

// SelectRobotMove picks one of the empty cells at random.
func SelectRobotMove(status entity.GameStatus, pick Picker) (int, error) {
	availableCells := status.EmptyCells()
	if len(availableCells) == 0 {
		return 0, apperror.ErrNoLegalMove
	}

	return availableCells[pick(len(availableCells))], nil
}

func StepRobotTurn(status entity.GameStatus, pick Picker) (entity.GameStatus, error) {
	cell, err := SelectRobotMove(status, pick)
	if err != nil {
		return status, fmt.Errorf("robot failed to select a move: %w", err)
	}

	next, err := ApplyMove(status, cell)
	if err != nil {
		return status, fmt.Errorf("robot failed to make turn: %w", err)
	}

	return next, nil
}

// AdvanceRobot plays a single robot move when the robot is on turn and the game goes on.
func AdvanceRobot(status entity.GameStatus, pick Picker) (entity.GameStatus, error) {
	if !status.IsPlaying() || !IsRobotTurn(status) {
		return status, nil
	}

	return StepRobotTurn(status, pick)
}
