package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/events"
	"ctchen222/Tic-Tac-Toe-Solo/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Solo/internal/room"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

var (
	// ErrSessionNotFound is returned for unknown or evicted session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when MaxSessions is reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// Close reasons carried by session_closed events.
const (
	ReasonClosed = "closed"
	ReasonIdle   = "idle"
)

// PolicyFactory builds the opponent policy for a new session.
type PolicyFactory func() session.MovePolicy

// Config tunes the hub.
type Config struct {
	ThinkingDelay   time.Duration
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	MaxSessions     int // 0 means unlimited
}

// Hub manages all the sessions and the rooms of connected players.
type Hub struct {
	cfg       Config
	newPolicy PolicyFactory
	publisher events.Publisher
	now       func() time.Time

	mu         sync.RWMutex
	sessions   map[string]*session.Session
	localRooms map[string]*room.Room

	register   chan *types.RegistrationRequest
	unregister chan *room.Room
}

// Option configures a Hub.
type Option func(*Hub)

// WithPublisher sets where lifecycle and session events go.
func WithPublisher(p events.Publisher) Option {
	return func(h *Hub) {
		if p != nil {
			h.publisher = p
		}
	}
}

// WithClock overrides the time source, for sessions and eviction.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub creates a new hub.
func NewHub(cfg Config, newPolicy PolicyFactory, opts ...Option) *Hub {
	h := &Hub{
		cfg:        cfg,
		newPolicy:  newPolicy,
		publisher:  events.NewNopPublisher(),
		now:        time.Now,
		sessions:   make(map[string]*session.Session),
		localRooms: make(map[string]*room.Room),
		register:   make(chan *types.RegistrationRequest),
		unregister: make(chan *room.Room),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes connection registrations and evicts idle sessions until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	var janitor <-chan time.Time
	if h.cfg.IdleTTL > 0 && h.cfg.JanitorInterval > 0 {
		ticker := time.NewTicker(h.cfg.JanitorInterval)
		defer ticker.Stop()
		janitor = ticker.C
	}

	slog.InfoContext(ctx, "Hub started", "idle_ttl", h.cfg.IdleTTL, "thinking_delay", h.cfg.ThinkingDelay)
	for {
		select {
		case <-ctx.Done():
			h.closeAllRooms()
			slog.Info("Hub stopped")
			return

		case req := <-h.register:
			h.handleRegistration(ctx, req)

		case r := <-h.unregister:
			h.handleUnregister(ctx, r)

		case <-janitor:
			h.evictIdle(ctx)
		}
	}
}

// CreateSession starts a new session with a fresh UUID.
func (h *Hub) CreateSession(ctx context.Context) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "hub.CreateSession")
	defer span.End()

	h.mu.Lock()
	if h.cfg.MaxSessions > 0 && len(h.sessions) >= h.cfg.MaxSessions {
		h.mu.Unlock()
		span.RecordError(ErrTooManySessions)
		return nil, ErrTooManySessions
	}
	id := uuid.NewString()
	s := session.New(id, h.newPolicy(), session.WithPublisher(h.publisher), session.WithClock(h.now))
	h.sessions[id] = s
	h.mu.Unlock()

	span.SetAttributes(attribute.String("session.id", id))
	activeSessions.Add(ctx, 1)
	slog.InfoContext(ctx, "Session created", "session.id", id)
	h.publishLifecycle(ctx, events.TypeSessionCreated, id, "")
	return s, nil
}

// Get returns a live session.
func (h *Hub) Get(id string) (*session.Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseSession removes a session and disconnects its player, if any.
func (h *Hub) CloseSession(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "hub.CloseSession", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	if !h.remove(ctx, id, ReasonClosed) {
		span.RecordError(ErrSessionNotFound)
		return ErrSessionNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// ThinkingDelay is the opponent delay used by live rooms.
func (h *Hub) ThinkingDelay() time.Duration {
	return h.cfg.ThinkingDelay
}
