package entity

const (
	ProgressPlaying = "playing"
	ProgressWin     = "win"
	ProgressDraw    = "draw"
)

const (
	EmptyCell = -1
	PlayerA   = 0
	PlayerB   = 1

	// EmptySlot marks an unclaimed seat. Any id below it is a robot.
	EmptySlot = -1

	BoardSize = 9
)

const (
	UndecidedName = "未定"
	RobotName     = "robot"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// GameStatus is the whole state of one game session. It is a value type: the engine
// receives a copy and returns the updated copy.
type GameStatus struct {
	Turn        int            `json:"turn"`
	TurnCount   int            `json:"turnCount"`
	Board       [BoardSize]int `json:"board"`
	PlayersID   [2]int         `json:"playersId"`
	PlayersName [2]string      `json:"playersName"`
	Progress    string         `json:"progress"`
}

func NewGameStatus() GameStatus {
	return GameStatus{
		Turn:        PlayerA,
		TurnCount:   0,
		Board:       [BoardSize]int{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		PlayersID:   [2]int{EmptySlot, EmptySlot},
		PlayersName: [2]string{UndecidedName, UndecidedName},
		Progress:    ProgressPlaying,
	}
}

func (that GameStatus) IsPlaying() bool {
	return that.Progress == ProgressPlaying
}

func (that GameStatus) IsFinished() bool {
	return that.Progress == ProgressWin || that.Progress == ProgressDraw
}

// IsRobot reports whether the participant id denotes a robot.
func IsRobot(participantID int) bool {
	return participantID < EmptySlot
}

func (that GameStatus) IsSlotEmpty(turnIndex int) bool {
	return that.PlayersID[turnIndex] == EmptySlot
}

func (that GameStatus) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that.Board {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// HasLine reports whether any of the winning triples is filled by one mark.
func (that GameStatus) HasLine() bool {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return true
		}
	}

	return false
}
