package events

import (
	"encoding/json"
	"fmt"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// SessionChannel is the channel carrying one session's state changes.
func SessionChannel(sessionID string) string {
	return fmt.Sprintf("channel:session:%s", sessionID)
}

// Event types
const (
	TypeSessionCreated = "session_created"
	TypeSessionClosed  = "session_closed"
	TypeRoundStarted   = "round_started"
	TypeMoveApplied    = "move_applied"
	TypeRoundOver      = "round_over"
	TypeScoreReset     = "score_reset"
)

// Event represents a message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// New marshals payload into an Event of the given type.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// SessionLifecyclePayload is the payload for "session_created" and "session_closed".
type SessionLifecyclePayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

// RoundStartedPayload is the payload for the "round_started" event.
type RoundStartedPayload struct {
	SessionID string `json:"session_id"`
	Round     uint64 `json:"round"`
	Abandoned bool   `json:"abandoned,omitempty"`
}

// MoveAppliedPayload is the payload for the "move_applied" event.
type MoveAppliedPayload struct {
	SessionID string `json:"session_id"`
	Round     uint64 `json:"round"`
	Mark      string `json:"mark"`
	Index     int    `json:"index"`
}

// RoundOverPayload is the payload for the "round_over" event.
type RoundOverPayload struct {
	SessionID    string `json:"session_id"`
	Round        uint64 `json:"round"`
	Outcome      string `json:"outcome"`
	Winner       string `json:"winner,omitempty"`
	Line         []int  `json:"line,omitempty"`
	HumanWins    int    `json:"human_wins"`
	OpponentWins int    `json:"opponent_wins"`
}

// ScoreResetPayload is the payload for the "score_reset" event.
type ScoreResetPayload struct {
	SessionID string `json:"session_id"`
	Round     uint64 `json:"round"`
}
