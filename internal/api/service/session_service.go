package service

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/Tic-Tac-Toe-Solo/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"
)

// SessionStore is where live sessions are kept.
type SessionStore interface {
	CreateSession(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, error)
	CloseSession(ctx context.Context, id string) error
}

// TokenIssuer issues the token a client presents to drive a session.
type TokenIssuer interface {
	Issue(sessionID string) (string, error)
}

// SessionService defines the interface for session-related business logic.
type SessionService interface {
	Create(ctx context.Context) (*models.CreateSessionResponse, error)
	Get(ctx context.Context, id string) (session.Snapshot, error)
	SubmitMove(ctx context.Context, id string, index int) (session.Snapshot, error)
	ResolveOpponent(ctx context.Context, id string) (session.Snapshot, error)
	NewRound(ctx context.Context, id string, abandon bool) (session.Snapshot, error)
	ResetScore(ctx context.Context, id string) (session.Snapshot, error)
	Close(ctx context.Context, id string) error
}

type sessionService struct {
	store  SessionStore
	issuer TokenIssuer
}

// NewSessionService creates a new SessionService.
func NewSessionService(store SessionStore, issuer TokenIssuer) SessionService {
	return &sessionService{store: store, issuer: issuer}
}

// Create starts a session and issues its token.
func (s *sessionService) Create(ctx context.Context) (*models.CreateSessionResponse, error) {
	sess, err := s.store.CreateSession(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(sess.ID())
	if err != nil {
		if closeErr := s.store.CloseSession(ctx, sess.ID()); closeErr != nil {
			slog.ErrorContext(ctx, "failed to drop session without token", "session.id", sess.ID(), "error", closeErr)
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &models.CreateSessionResponse{
		SessionID: sess.ID(),
		Token:     token,
		State:     sess.Snapshot(),
	}, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *sessionService) SubmitMove(ctx context.Context, id string, index int) (session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.SubmitMove(ctx, index)
}

func (s *sessionService) ResolveOpponent(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.ResolveOpponentMove(ctx)
}

// NewRound starts the next round. With abandon, an unfinished round is dropped unscored.
func (s *sessionService) NewRound(ctx context.Context, id string, abandon bool) (session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if abandon {
		return sess.AbandonRound(ctx), nil
	}
	return sess.StartNewRound(ctx)
}

func (s *sessionService) ResetScore(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.ResetScore(ctx), nil
}

func (s *sessionService) Close(ctx context.Context, id string) error {
	return s.store.CloseSession(ctx, id)
}
