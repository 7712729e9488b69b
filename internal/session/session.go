package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/events"
	"ctchen222/Tic-Tac-Toe-Solo/internal/game"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Session runs rounds of human (X) against computer (O) and keeps the score.
// Commands are serialized; a timer-driven opponent move never interleaves with a caller command.
type Session struct {
	id        string
	policy    MovePolicy
	publisher events.Publisher
	now       func() time.Time

	mu         sync.Mutex
	board      game.Board
	state      State
	round      uint64
	score      Score
	lastActive time.Time
	pending    []events.Event
	seq        uint64
	watchers   map[chan struct{}]struct{}

	// pubMu orders publishing: batches go out in the sequence they were drained.
	pubMu     sync.Mutex
	pubCond   *sync.Cond
	published uint64
}

// batch is the events one command produced, numbered in drain order.
type batch struct {
	seq    uint64
	events []events.Event
}

// Option configures a Session.
type Option func(*Session)

// WithPublisher sets where state-change events go. The default drops them.
func WithPublisher(p events.Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session in round 1, human to move.
func New(id string, policy MovePolicy, opts ...Option) *Session {
	s := &Session{
		id:        id,
		policy:    policy,
		publisher: events.NewNopPublisher(),
		now:       time.Now,
		state:     StateHumanTurn,
		round:     1,
		watchers:  make(map[chan struct{}]struct{}),
	}
	s.pubCond = sync.NewCond(&s.pubMu)
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

// SubmitMove places the human's X. It never applies the opponent's reply; on a
// non-terminal board the session moves to StateOpponentThinking and waits for
// ResolveOpponentMove.
func (s *Session) SubmitMove(ctx context.Context, index int) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Session.SubmitMove", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int("cell.index", index),
	))
	defer span.End()

	s.mu.Lock()
	err := s.submitLocked(ctx, index)
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		return snap, err
	}
	span.SetAttributes(attribute.String("session.state", string(snap.State)))
	return snap, nil
}

// ResolveOpponentMove asks the MovePolicy for O's move and applies it.
func (s *Session) ResolveOpponentMove(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Session.ResolveOpponentMove", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	err := s.resolveLocked(ctx)
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	return s.finishResolve(ctx, span, snap, pending, err)
}

// ResolveOpponentMoveForRound is ResolveOpponentMove for deferred callers: it
// fails with ErrStaleRound when the round it was scheduled for has been replaced.
func (s *Session) ResolveOpponentMoveForRound(ctx context.Context, round uint64) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Session.ResolveOpponentMoveForRound", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int64("session.round", int64(round)),
	))
	defer span.End()

	s.mu.Lock()
	var err error
	if s.round != round {
		err = fmt.Errorf("%w: scheduled for round %d, now %d", ErrStaleRound, round, s.round)
	} else {
		err = s.resolveLocked(ctx)
	}
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	return s.finishResolve(ctx, span, snap, pending, err)
}

func (s *Session) finishResolve(ctx context.Context, span trace.Span, snap Snapshot, pending batch, err error) (Snapshot, error) {
	s.publish(ctx, pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Opponent move not applied")
		return snap, err
	}
	span.SetAttributes(attribute.String("session.state", string(snap.State)))
	return snap, nil
}

// ScheduleOpponentMove resolves the opponent's move after delay, bound to the
// current round. done, if set, receives the result. The returned stop func
// cancels a resolution that has not fired yet.
func (s *Session) ScheduleOpponentMove(ctx context.Context, delay time.Duration, done func(Snapshot, error)) (stop func() bool, err error) {
	s.mu.Lock()
	state, round := s.state, s.round
	s.mu.Unlock()

	if state != StateOpponentThinking {
		return nil, fmt.Errorf("%w: nothing to resolve during %s", ErrIllegalState, state)
	}

	ctx = context.WithoutCancel(ctx)
	timer := time.AfterFunc(delay, func() {
		snap, err := s.ResolveOpponentMoveForRound(ctx, round)
		if done != nil {
			done(snap, err)
		}
	})
	return timer.Stop, nil
}

// StartNewRound clears the board after a finished round. The score is kept.
func (s *Session) StartNewRound(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Session.StartNewRound", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	var err error
	if s.state != StateRoundOver {
		err = fmt.Errorf("%w: round %d is still running", ErrIllegalState, s.round)
	} else {
		s.touchLocked()
		s.resetRoundLocked(ctx, false)
	}
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "New round refused")
		return snap, err
	}
	return snap, nil
}

// AbandonRound discards the current round in any state, without scoring it,
// and starts a new one. A pending opponent resolution for the old round becomes stale.
func (s *Session) AbandonRound(ctx context.Context) Snapshot {
	ctx, span := tracer.Start(ctx, "Session.AbandonRound", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	s.touchLocked()
	s.resetRoundLocked(ctx, s.state != StateRoundOver)
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, pending)
	return snap
}

// ResetScore zeroes the score and starts a fresh round.
func (s *Session) ResetScore(ctx context.Context) Snapshot {
	ctx, span := tracer.Start(ctx, "Session.ResetScore", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	s.touchLocked()
	s.score = Score{}
	s.resetRoundLocked(ctx, s.state != StateRoundOver)
	s.queueLocked(events.TypeScoreReset, events.ScoreResetPayload{SessionID: s.id, Round: s.round})
	snap, pending := s.snapshotLocked(), s.drainLocked()
	s.mu.Unlock()

	slog.InfoContext(ctx, "Score reset", "session.id", s.id, "round", snap.Round)
	s.publish(ctx, pending)
	return snap
}

func (s *Session) submitLocked(ctx context.Context, index int) error {
	if s.state != StateHumanTurn {
		return fmt.Errorf("%w: cannot submit a move during %s", ErrIllegalState, s.state)
	}
	if err := s.board.PlaceMark(index, HumanMark); err != nil {
		slog.WarnContext(ctx, "invalid move from player", "session.id", s.id, "cell.index", index, "error", err)
		return err
	}
	s.touchLocked()
	s.afterMoveLocked(ctx, HumanMark, index, StateOpponentThinking)
	return nil
}

func (s *Session) resolveLocked(ctx context.Context) error {
	if s.state != StateOpponentThinking {
		return fmt.Errorf("%w: no opponent move pending during %s", ErrIllegalState, s.state)
	}

	legal := s.board.LegalMoves()
	index, err := s.policy.ChooseMove(s.board, legal)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPolicyViolation, err)
		slog.ErrorContext(ctx, "move policy failed", "session.id", s.id, "legal_moves", legal, "error", err)
		return err
	}
	if !slices.Contains(legal, index) {
		err = fmt.Errorf("%w: index %d not among legal moves %v", ErrPolicyViolation, index, legal)
		slog.ErrorContext(ctx, "move policy chose an illegal cell", "session.id", s.id, "cell.index", index, "error", err)
		return err
	}
	if err := s.board.PlaceMark(index, OpponentMark); err != nil {
		return fmt.Errorf("%w: %w", ErrPolicyViolation, err)
	}

	s.afterMoveLocked(ctx, OpponentMark, index, StateHumanTurn)
	return nil
}

// afterMoveLocked records a placed mark and either ends the round or hands the turn to next.
func (s *Session) afterMoveLocked(ctx context.Context, mark game.PlayerMark, index int, next State) {
	movesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("mark", string(mark))))
	s.queueLocked(events.TypeMoveApplied, events.MoveAppliedPayload{
		SessionID: s.id,
		Round:     s.round,
		Mark:      string(mark),
		Index:     index,
	})

	outcome := s.board.Evaluate()
	if !outcome.IsTerminal() {
		s.state = next
		return
	}

	switch outcome.Winner {
	case HumanMark:
		s.score.HumanWins++
	case OpponentMark:
		s.score.OpponentWins++
	}
	s.state = StateRoundOver
	roundsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))

	payload := events.RoundOverPayload{
		SessionID:    s.id,
		Round:        s.round,
		Outcome:      string(outcome.Kind),
		Winner:       string(outcome.Winner),
		HumanWins:    s.score.HumanWins,
		OpponentWins: s.score.OpponentWins,
	}
	if line, ok := s.board.WinningLine(); ok {
		payload.Line = line[:]
	}
	s.queueLocked(events.TypeRoundOver, payload)
	slog.InfoContext(ctx, "Round over", "session.id", s.id, "round", s.round, "outcome", outcome.String(),
		"score.human", s.score.HumanWins, "score.opponent", s.score.OpponentWins)
}

func (s *Session) resetRoundLocked(ctx context.Context, abandoned bool) {
	s.board.Reset()
	s.state = StateHumanTurn
	s.round++
	s.queueLocked(events.TypeRoundStarted, events.RoundStartedPayload{
		SessionID: s.id,
		Round:     s.round,
		Abandoned: abandoned,
	})
	slog.DebugContext(ctx, "Round started", "session.id", s.id, "round", s.round, "abandoned", abandoned)
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) queueLocked(eventType string, payload any) {
	event, err := events.New(eventType, payload)
	if err != nil {
		slog.Error("failed to build event", "session.id", s.id, "event.type", eventType, "error", err)
		return
	}
	s.pending = append(s.pending, event)
}

func (s *Session) drainLocked() batch {
	if len(s.pending) == 0 {
		return batch{}
	}
	b := batch{seq: s.seq, events: s.pending}
	s.seq++
	s.pending = nil
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return b
}

// Watch returns a channel that is signalled after commands that change the
// session, whoever issued them. Signals coalesce; read Snapshot for the current
// state. cancel stops the signals.
func (s *Session) Watch() (changes <-chan struct{}, cancel func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
	}
}

// publish sends a drained batch outside the state lock, after every earlier batch.
// Failures are logged, never returned: the state change has already happened.
func (s *Session) publish(ctx context.Context, pending batch) {
	if len(pending.events) == 0 {
		return
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	for s.published != pending.seq {
		s.pubCond.Wait()
	}
	defer func() {
		s.published++
		s.pubCond.Broadcast()
	}()

	channel := events.SessionChannel(s.id)
	for _, event := range pending.events {
		if err := s.publisher.Publish(ctx, channel, event); err != nil {
			slog.ErrorContext(ctx, "failed to publish session event", "session.id", s.id, "event.type", event.Type, "error", err)
			trace.SpanFromContext(ctx).RecordError(err)
		}
	}
}
