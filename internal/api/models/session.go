package models

import "ctchen222/Tic-Tac-Toe-Solo/internal/session"

// MoveRequest defines the structure for a human move. Range is checked by the game rules.
type MoveRequest struct {
	Index *int `json:"index" binding:"required"`
}

// NewRoundQuery defines the query of a new round request.
type NewRoundQuery struct {
	Abandon bool `form:"abandon"`
}

// CreateSessionResponse defines the structure for a newly created session.
type CreateSessionResponse struct {
	SessionID string           `json:"session_id"`
	Token     string           `json:"token"`
	State     session.Snapshot `json:"state"`
}
