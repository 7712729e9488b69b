package session

import (
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
)

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Board returns a copy of the current board.
func (s *Session) Board() game.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Turn returns the mark to move next.
func (s *Session) Turn() game.PlayerMark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Turn()
}

// Outcome evaluates the current board.
func (s *Session) Outcome() game.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Evaluate()
}

// Score returns the accumulated score.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// WinningLine returns the line that decided the round, if a player won.
func (s *Session) WinningLine() (game.WinLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.WinningLine()
}

// State returns the state machine position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round returns the current round number, starting at 1.
func (s *Session) Round() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// LastActive returns when a command last changed the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		Round:      s.round,
		State:      s.state,
		Board:      s.board.Cells(),
		Turn:       s.board.Turn(),
		Outcome:    s.board.Evaluate(),
		LegalMoves: s.board.LegalMoves(),
		Score:      s.score,
	}
	if line, ok := s.board.WinningLine(); ok {
		snap.WinningLine = line[:]
	}
	if snap.Outcome.IsTerminal() {
		snap.LegalMoves = []int{}
	}
	return snap
}
