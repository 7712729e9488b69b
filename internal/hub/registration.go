package hub

import (
	"context"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Solo/internal/room"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleRegistration gives the connection its own room. A previous connection to
// the same session is closed: one live player per session.
func (h *Hub) handleRegistration(ctx context.Context, req *types.RegistrationRequest) {
	runCtx := ctx
	sessionID := req.Session.ID()
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	if _, err := h.Get(sessionID); err != nil {
		slog.WarnContext(ctx, "Registration for unknown session", "session.id", sessionID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown session")
		if err := req.Player.Conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing rejected connection", "error", err)
		}
		return
	}

	newRoom := room.NewRoom(req.Session, req.Player, h.cfg.ThinkingDelay)

	h.mu.Lock()
	previous, replaced := h.localRooms[sessionID]
	h.localRooms[sessionID] = newRoom
	h.mu.Unlock()

	if replaced {
		slog.InfoContext(ctx, "Replacing existing connection for session", "session.id", sessionID, "player.id", previous.Player.ID)
		previous.Close()
	}

	h.sendInitialRoomState(ctx, newRoom, req.Token)
	go newRoom.Start(runCtx, h.unregister)

	slog.InfoContext(ctx, "Player connected to session", "session.id", sessionID, "player.id", req.Player.ID)
}

// handleUnregister forgets a finished room. The session itself stays until it is
// closed or idles out, so the player can reconnect.
func (h *Hub) handleUnregister(ctx context.Context, r *room.Room) {
	h.mu.Lock()
	if current, ok := h.localRooms[r.ID]; ok && current == r {
		delete(h.localRooms, r.ID)
	}
	h.mu.Unlock()

	slog.InfoContext(ctx, "Player disconnected", "session.id", r.ID, "player.id", r.Player.ID)
}
