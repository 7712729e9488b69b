package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"
	"ctchen222/Tic-Tac-Toe-Solo/internal/validator"
	"ctchen222/Tic-Tac-Toe-Solo/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// errBadRequest marks messages that could not be decoded or validated.
var errBadRequest = errors.New("bad request")

// HandleMessage handles a message from the player. It acts as a dispatcher.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", r.Player.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.SendError(ctx, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if err := validator.Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", r.Player.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.SendError(ctx, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var (
		snap session.Snapshot
		err  error
	)
	switch message.Type {
	case proto.TypeMove:
		span.SetAttributes(attribute.Int("cell.index", *message.Index))
		snap, err = r.Session.SubmitMove(ctx, *message.Index)
	case proto.TypeNewRound:
		snap, err = r.Session.StartNewRound(ctx)
	case proto.TypeAbandon:
		snap = r.Session.AbandonRound(ctx)
	case proto.TypeResetScore:
		snap = r.Session.ResetScore(ctx)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Command rejected")
		r.SendError(ctx, err)
		return
	}
	r.SendState(ctx, snap)
}

// errorCode maps a command error to the code and reason sent to the client.
// Internal failures do not leak their details.
func errorCode(err error) (code, reason string) {
	switch {
	case errors.Is(err, errBadRequest):
		return proto.CodeBadRequest, err.Error()
	case errors.Is(err, game.ErrInvalidMove):
		return proto.CodeInvalidMove, err.Error()
	case errors.Is(err, session.ErrIllegalState):
		return proto.CodeIllegalState, err.Error()
	default:
		return proto.CodeInternal, "internal error"
	}
}
