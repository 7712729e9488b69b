package proto

import (
	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"
)

// Client message types
const (
	TypeMove       = "move"
	TypeNewRound   = "new_round"
	TypeAbandon    = "abandon"
	TypeResetScore = "reset_score"
)

// Server message types
const (
	TypeAssignment = "assignment"
	TypeState      = "state"
	TypeError      = "error"
)

// Error codes carried by "error" messages.
const (
	CodeBadRequest   = "bad_request"
	CodeInvalidMove  = "invalid_move"
	CodeIllegalState = "illegal_state"
	CodeInternal     = "internal"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type  string `json:"type" validate:"required,oneof=move new_round abandon reset_score"`
	Index *int   `json:"index,omitempty" validate:"required_if=Type move"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type   string            `json:"type" validate:"required"`
	Code   string            `json:"code,omitempty"`
	Reason string            `json:"reason,omitempty"`
	State  *session.Snapshot `json:"state,omitempty"`
}

// SessionAssignmentMessage tells the client which session it drives and how to resume it.
type SessionAssignmentMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Token     string          `json:"token,omitempty"`
	Mark      game.PlayerMark `json:"mark"`
}
