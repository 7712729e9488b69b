// Package render draws session snapshots for a terminal.
package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/muesli/termenv"
)

const winColor = "#FF6666"

const (
	rowSeparator = "───┼───┼───"
	colSeparator = "│"
)

// Renderer styles snapshots for one terminal output. On an Ascii profile it
// produces plain text.
type Renderer struct {
	out *termenv.Output
}

func New(out *termenv.Output) *Renderer {
	return &Renderer{out: out}
}

// Board draws the grid. Empty cells show the key (1-9) that claims them; the
// winning line is highlighted.
func (r *Renderer) Board(snap session.Snapshot) string {
	var b strings.Builder
	for row := range game.Size {
		if row > 0 {
			b.WriteString(rowSeparator)
			b.WriteByte('\n')
		}
		cells := make([]string, game.Size)
		for col := range game.Size {
			index := row*game.Size + col
			cells[col] = " " + r.cell(snap, index) + " "
		}
		b.WriteString(strings.Join(cells, colSeparator))
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *Renderer) cell(snap session.Snapshot, index int) string {
	mark := snap.Board[index]
	if mark == game.None {
		return r.out.String(strconv.Itoa(index + 1)).Faint().String()
	}

	style := r.out.String(string(mark)).Bold()
	if slices.Contains(snap.WinningLine, index) {
		style = style.Foreground(r.out.Color(winColor))
	}
	return style.String()
}

// Status is the score line followed by whose turn it is or how the round ended.
func (r *Renderer) Status(snap session.Snapshot) string {
	score := fmt.Sprintf("Round %d   You (%s): %d   Computer (%s): %d",
		snap.Round, session.HumanMark, snap.Score.HumanWins, session.OpponentMark, snap.Score.OpponentWins)
	return score + "\n" + r.headline(snap) + "\n"
}

func (r *Renderer) headline(snap session.Snapshot) string {
	switch snap.State {
	case session.StateHumanTurn:
		return fmt.Sprintf("Your move (%s)", session.HumanMark)
	case session.StateOpponentThinking:
		return "Computer is thinking..."
	}

	switch {
	case snap.Outcome.Kind == game.KindDraw:
		return r.out.String("Draw.").Bold().String() + "  Press n for a new round."
	case snap.Outcome.Winner == session.HumanMark:
		return r.out.String("You win!").Bold().Foreground(r.out.Color(winColor)).String() + "  Press n for a new round."
	default:
		return r.out.String("Computer wins.").Bold().Foreground(r.out.Color(winColor)).String() + "  Press n for a new round."
	}
}

// Help lists the keys the terminal client accepts.
func Help() string {
	return "1-9: place your mark   n: new round   a: abandon round   r: reset score   q: quit\n"
}

// Frame is the full screen: board, status and help.
func (r *Renderer) Frame(snap session.Snapshot) string {
	return r.Board(snap) + "\n" + r.Status(snap) + Help()
}
