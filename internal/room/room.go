package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
	"ctchen222/Tic-Tac-Toe-Solo/internal/player"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

const (
	heartbeatInterval = 10 * time.Second
)

var tracer = otel.Tracer("room")

// Room connects one live websocket player to a session. Messages from the player
// and the opponent's delayed reply are handled on a single goroutine, so writes to
// the connection never race.
type Room struct {
	ID            string
	Session       *session.Session
	Player        *player.Player
	thinkingDelay time.Duration
	incoming      chan []byte
	Done          chan struct{}
	closeOnce     sync.Once

	changes <-chan struct{}
	unwatch func()
	// lastSent is the view the player has. Owned by the run goroutine once started.
	lastSent sentState
}

// sentState is the part of a snapshot that decides whether the player is up to date.
type sentState struct {
	round uint64
	state session.State
	board [game.CellCount]game.PlayerMark
	score session.Score
}

func sentStateOf(snap session.Snapshot) sentState {
	return sentState{round: snap.Round, state: snap.State, board: snap.Board, score: snap.Score}
}

// NewRoom creates a room for the session. thinkingDelay is how long the opponent
// appears to think before its move is applied.
func NewRoom(s *session.Session, p *player.Player, thinkingDelay time.Duration) *Room {
	changes, unwatch := s.Watch()
	return &Room{
		ID:            s.ID(),
		Session:       s,
		Player:        p,
		thinkingDelay: thinkingDelay,
		incoming:      make(chan []byte, 10),
		Done:          make(chan struct{}),
		changes:       changes,
		unwatch:       unwatch,
	}
}

// Start runs the room until the player disconnects, Close is called, or ctx ends.
// The finished room is then handed to unregister.
func (r *Room) Start(ctx context.Context, unregister chan<- *Room) {
	go r.ReadPump(ctx)
	r.run(ctx)
	r.Close()

	select {
	case unregister <- r:
	case <-ctx.Done():
	}
}

// run is the main loop for the room.
func (r *Room) run(ctx context.Context) {
	opponentTimer := time.NewTimer(r.thinkingDelay)
	stopTimer(opponentTimer)
	pingTicker := time.NewTicker(heartbeatInterval)

	defer func() {
		r.unwatch()
		opponentTimer.Stop()
		pingTicker.Stop()
	}()

	var (
		armed        bool
		pendingRound uint64
	)
	rearm := func() {
		snap := r.Session.Snapshot()
		switch {
		case snap.State == session.StateOpponentThinking && (!armed || pendingRound != snap.Round):
			stopTimer(opponentTimer)
			opponentTimer.Reset(r.thinkingDelay)
			armed, pendingRound = true, snap.Round
		case snap.State != session.StateOpponentThinking && armed:
			stopTimer(opponentTimer)
			armed = false
		}
	}
	select {
	case <-r.changes:
		r.syncState(ctx)
	default:
	}
	rearm()

	for {
		select {
		case <-ctx.Done():
			return

		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case msg, ok := <-r.incoming:
			if !ok {
				return
			}
			r.HandleMessage(ctx, msg)

		case <-r.changes:
			// Commands may also arrive through the HTTP API.
			r.syncState(ctx)

		case <-opponentTimer.C:
			armed = false
			r.resolveOpponent(ctx, pendingRound)

		case <-pingTicker.C:
			if err := r.Player.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", r.Player.ID, "error", err)
			}
		}
		rearm()
	}
}

// resolveOpponent applies the opponent's move for round, unless the round moved on.
func (r *Room) resolveOpponent(ctx context.Context, round uint64) {
	snap, err := r.Session.ResolveOpponentMoveForRound(ctx, round)
	if errors.Is(err, session.ErrIllegalState) {
		slog.DebugContext(ctx, "opponent move no longer pending", "room.id", r.ID, "round", round, "error", err)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "opponent move failed", "room.id", r.ID, "round", round, "error", err)
		r.SendError(ctx, err)
		return
	}
	r.SendState(ctx, snap)
}

// syncState pushes the session's state if the player has not seen it yet.
func (r *Room) syncState(ctx context.Context) {
	snap := r.Session.Snapshot()
	if sentStateOf(snap) == r.lastSent {
		return
	}
	r.SendState(ctx, snap)
}

// Close stops the room and closes the player's connection. It is safe to call more than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		r.unwatch()
		close(r.Done)
		if err := r.Player.Conn.Close(); err != nil {
			slog.Debug("closing player connection", "player.id", r.Player.ID, "error", err)
		}
	})
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
