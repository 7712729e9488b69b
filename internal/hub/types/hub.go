package types

import (
	"ctchen222/Tic-Tac-Toe-Solo/internal/player"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"
)

// RegistrationRequest attaches a live player connection to a session.
type RegistrationRequest struct {
	Player  *player.Player
	Session *session.Session
	Token   string // Sent back in the assignment so the client can reconnect
}
