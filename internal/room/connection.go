package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/session"
	"ctchen222/Tic-Tac-Toe-Solo/pkg/proto"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Send writes a message to the player.
func (r *Room) Send(ctx context.Context, message any) {
	ctx, span := tracer.Start(ctx, "room.Send", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	if err := r.Player.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.ErrorContext(ctx, "error writing message to player", "player.id", r.Player.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error writing message to player")
	}
}

// SendState pushes a session snapshot to the player.
func (r *Room) SendState(ctx context.Context, snap session.Snapshot) {
	r.lastSent = sentStateOf(snap)
	r.Send(ctx, &proto.ServerToClientMessage{Type: proto.TypeState, State: &snap})
}

// SendAssignment tells the player which session and mark they have. token is
// what the client presents to reconnect.
func (r *Room) SendAssignment(ctx context.Context, token string) {
	r.Send(ctx, &proto.SessionAssignmentMessage{
		Type:      proto.TypeAssignment,
		SessionID: r.ID,
		Token:     token,
		Mark:      r.Player.Mark,
	})
}

// SendError reports a rejected command to the player.
func (r *Room) SendError(ctx context.Context, err error) {
	code, reason := errorCode(err)
	r.Send(ctx, &proto.ServerToClientMessage{Type: proto.TypeError, Code: code, Reason: reason})
}

// ReadPump pumps messages from the websocket connection to the room's incoming channel.
func (r *Room) ReadPump(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.ReadPump", trace.WithAttributes(
		attribute.String("player.id", r.Player.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()
	defer close(r.incoming)

	for {
		_, msg, err := r.Player.Conn.ReadMessage()
		if err != nil {
			slog.InfoContext(ctx, "Player connection closed", "player.id", r.Player.ID, "room.id", r.ID, "error", err)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Player connection error")
			}
			return
		}

		select {
		case r.incoming <- msg:
		case <-r.Done:
			return
		}
	}
}
