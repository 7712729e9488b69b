package hub

import (
	"context"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/room"

	"go.opentelemetry.io/otel/attribute"
)

// evictIdle removes sessions untouched for longer than IdleTTL and returns how many went.
func (h *Hub) evictIdle(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "hub.evictIdle")
	defer span.End()

	now := h.now()
	h.mu.RLock()
	var idle []string
	for id, s := range h.sessions {
		if now.Sub(s.LastActive()) > h.cfg.IdleTTL {
			idle = append(idle, id)
		}
	}
	h.mu.RUnlock()

	evicted := 0
	for _, id := range idle {
		if h.remove(ctx, id, ReasonIdle) {
			evicted++
		}
	}

	span.SetAttributes(attribute.Int("sessions.evicted", evicted))
	if evicted > 0 {
		evictedSessions.Add(ctx, int64(evicted))
		slog.InfoContext(ctx, "Evicted idle sessions", "count", evicted, "idle_ttl", h.cfg.IdleTTL)
	}
	return evicted
}

// closeAllRooms disconnects every live player. Used on shutdown.
func (h *Hub) closeAllRooms() {
	h.mu.Lock()
	rooms := h.localRooms
	h.localRooms = make(map[string]*room.Room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
