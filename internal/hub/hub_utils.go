package hub

import (
	"context"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/events"
	"ctchen222/Tic-Tac-Toe-Solo/internal/room"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

var (
	meter = otel.Meter("hub")

	activeSessions  = newUpDownCounter("hub.sessions.active", "Sessions currently held in memory")
	evictedSessions = newCounter("hub.sessions.evicted", "Sessions removed after idling out")
)

func newUpDownCounter(name, description string) metric.Int64UpDownCounter {
	counter, err := meter.Int64UpDownCounter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return noop.Int64UpDownCounter{}
	}
	return counter
}

func newCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return counter
}

// remove drops a session and its room. It reports whether the session existed.
func (h *Hub) remove(ctx context.Context, id, reason string) bool {
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	r, hasRoom := h.localRooms[id]
	delete(h.localRooms, id)
	h.mu.Unlock()

	if !ok {
		return false
	}
	if hasRoom {
		r.Close()
	}

	activeSessions.Add(ctx, -1)
	slog.InfoContext(ctx, "Session closed", "session.id", id, "reason", reason)
	h.publishLifecycle(ctx, events.TypeSessionClosed, id, reason)
	return true
}

// sendInitialRoomState greets a newly connected player with their assignment and the board.
func (h *Hub) sendInitialRoomState(ctx context.Context, r *room.Room, token string) {
	ctx, span := tracer.Start(ctx, "hub.sendInitialRoomState", trace.WithAttributes(
		attribute.String("session.id", r.ID),
	))
	defer span.End()

	r.SendAssignment(ctx, token)
	r.SendState(ctx, r.Session.Snapshot())
}

func (h *Hub) publishLifecycle(ctx context.Context, eventType, sessionID, reason string) {
	event, err := events.New(eventType, events.SessionLifecyclePayload{SessionID: sessionID, Reason: reason})
	if err == nil {
		err = h.publisher.Publish(ctx, events.EventsChannel, event)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish lifecycle event", "event.type", eventType, "session.id", sessionID, "error", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish lifecycle event")
	}
}
