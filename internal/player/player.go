package player

import "ctchen222/Tic-Tac-Toe-Solo/internal/game"

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player is the human seat of a session, reached over a Connection.
type Player struct {
	ID   string
	Mark game.PlayerMark
	Conn Connection
}

// NewPlayer creates the human player. Humans always play X.
func NewPlayer(id string, conn Connection) *Player {
	return &Player{
		ID:   id,
		Mark: game.PlayerX,
		Conn: conn,
	}
}
