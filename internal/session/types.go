package session

import (
	"errors"
	"fmt"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
)

// The human always plays X and the computer always plays O.
const (
	HumanMark    = game.PlayerX
	OpponentMark = game.PlayerO
)

// State is the session's position in the round state machine.
type State string

const (
	StateHumanTurn        State = "human_turn"
	StateOpponentThinking State = "opponent_thinking"
	StateRoundOver        State = "round_over"
)

var (
	// ErrIllegalState is returned when a command is issued in a state that does not accept it.
	ErrIllegalState = errors.New("illegal state")
	// ErrStaleRound is returned when a delayed opponent resolution targets a round that is gone.
	ErrStaleRound = fmt.Errorf("%w: stale round", ErrIllegalState)
	// ErrPolicyViolation means the MovePolicy broke its contract. It is an internal bug, not a user error.
	ErrPolicyViolation = errors.New("move policy violated its contract")
)

// MovePolicy selects the opponent's move. It must return an element of legalMoves,
// and fail with bot.ErrNoLegalMoves when legalMoves is empty.
type MovePolicy interface {
	ChooseMove(board game.Board, legalMoves []int) (int, error)
}

// Score counts clean wins across rounds. Draws count for neither side.
type Score struct {
	HumanWins    int `json:"human_wins"`
	OpponentWins int `json:"opponent_wins"`
}

// Snapshot is a consistent copy of everything a presentation layer needs.
type Snapshot struct {
	SessionID   string                          `json:"session_id"`
	Round       uint64                          `json:"round"`
	State       State                           `json:"state"`
	Board       [game.CellCount]game.PlayerMark `json:"board"`
	Turn        game.PlayerMark                 `json:"turn"`
	Outcome     game.Outcome                    `json:"outcome"`
	WinningLine []int                           `json:"winning_line,omitempty"`
	LegalMoves  []int                           `json:"legal_moves"`
	Score       Score                           `json:"score"`
}
