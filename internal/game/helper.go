package game

// Board geometry
const (
	Size      = 3 // Cells per row and column
	CellCount = Size * Size
	CellMin   = 0             // First index of the board
	CellMax   = CellCount - 1 // Last index of the board
)

// OutcomeKind classifies a board as running or decided.
type OutcomeKind string

const (
	KindInProgress OutcomeKind = "in_progress"
	KindWin        OutcomeKind = "win"
	KindDraw       OutcomeKind = "draw"
)

// Outcome is derived from the board on demand and never stored.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner PlayerMark  `json:"winner,omitempty"`
}

var (
	InProgress = Outcome{Kind: KindInProgress}
	Draw       = Outcome{Kind: KindDraw}
)

// Win returns the outcome of mark completing a line.
func Win(mark PlayerMark) Outcome {
	return Outcome{Kind: KindWin, Winner: mark}
}

// IsTerminal reports whether the round is decided.
func (o Outcome) IsTerminal() bool {
	return o.Kind != KindInProgress
}

func (o Outcome) String() string {
	if o.Kind == KindWin {
		return string(o.Winner) + " wins"
	}
	return string(o.Kind)
}

// Opponent returns the other player's mark.
func Opponent(mark PlayerMark) PlayerMark {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
