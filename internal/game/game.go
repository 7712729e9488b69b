package game

import (
	"errors"
	"fmt"
	"strings"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"
)

// ErrInvalidMove is returned by PlaceMark for out-of-range indices, occupied
// cells, out-of-turn marks and moves on a decided board.
var ErrInvalidMove = errors.New("invalid move")

// WinLine is a triple of cell indices that wins when uniformly marked.
type WinLine [3]int

// WinLines lists every winning triple. Evaluate reports the first match in this order.
var WinLines = [8]WinLine{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid stored row-major, cells 0..8.
// The zero value is an empty board with X to move.
type Board struct {
	cells [CellCount]PlayerMark
}

// NewBoard returns an empty board.
func NewBoard() Board {
	return Board{}
}

// BoardFromCells builds a board from raw cell contents.
// It does not check turn order; it exists for replays and tests.
func BoardFromCells(cells [CellCount]PlayerMark) Board {
	return Board{cells: cells}
}

// PlaceMark puts mark on the cell at index. On error the board is unchanged.
func (b *Board) PlaceMark(index int, mark PlayerMark) error {
	if mark != PlayerX && mark != PlayerO {
		return fmt.Errorf("%w: unknown mark %q", ErrInvalidMove, mark)
	}
	if index < CellMin || index > CellMax {
		return fmt.Errorf("%w: cell %d out of range", ErrInvalidMove, index)
	}
	if b.Evaluate().IsTerminal() {
		return fmt.Errorf("%w: game already finished", ErrInvalidMove)
	}
	if b.cells[index] != None {
		return fmt.Errorf("%w: cell %d already occupied", ErrInvalidMove, index)
	}
	if turn := b.Turn(); mark != turn {
		return fmt.Errorf("%w: %s to move, got %s", ErrInvalidMove, turn, mark)
	}

	b.cells[index] = mark
	return nil
}

// Evaluate derives the outcome of the board.
func (b Board) Evaluate() Outcome {
	if line, ok := b.WinningLine(); ok {
		return Win(b.cells[line[0]])
	}
	if b.IsFull() {
		return Draw
	}
	return InProgress
}

// WinningLine returns the first uniformly marked line, if any.
func (b Board) WinningLine() (WinLine, bool) {
	for _, line := range WinLines {
		first := b.cells[line[0]]
		if first != None && first == b.cells[line[1]] && first == b.cells[line[2]] {
			return line, true
		}
	}
	return WinLine{}, false
}

// LegalMoves returns the indices of the empty cells in ascending order.
func (b Board) LegalMoves() []int {
	moves := make([]int, 0, CellCount)
	for i, cell := range b.cells {
		if cell == None {
			moves = append(moves, i)
		}
	}
	return moves
}

// IsFull reports whether every cell is occupied.
func (b Board) IsFull() bool {
	for _, cell := range b.cells {
		if cell == None {
			return false
		}
	}
	return true
}

// Turn returns the mark to move next. X always opens.
func (b Board) Turn() PlayerMark {
	var xs, os int
	for _, cell := range b.cells {
		switch cell {
		case PlayerX:
			xs++
		case PlayerO:
			os++
		}
	}
	if xs > os {
		return PlayerO
	}
	return PlayerX
}

// Reset clears every cell.
func (b *Board) Reset() {
	b.cells = [CellCount]PlayerMark{}
}

// Cell returns the mark at index, or None when index is out of range.
func (b Board) Cell(index int) PlayerMark {
	if index < CellMin || index > CellMax {
		return None
	}
	return b.cells[index]
}

// Cells returns a copy of the cells.
func (b Board) Cells() [CellCount]PlayerMark {
	return b.cells
}

// Rows converts the board to a slice of rows.
func (b Board) Rows() [][]PlayerMark {
	rows := make([][]PlayerMark, Size)
	for r := range [Size]int{} {
		rows[r] = make([]PlayerMark, Size)
		for c := range [Size]int{} {
			rows[r][c] = b.cells[r*Size+c]
		}
	}
	return rows
}

// String renders the board as three lines, empty cells as dots.
func (b Board) String() string {
	var sb strings.Builder
	for i, cell := range b.cells {
		if cell == None {
			sb.WriteByte('.')
		} else {
			sb.WriteString(string(cell))
		}
		if i%Size == Size-1 && i != CellMax {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
