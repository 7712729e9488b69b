package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ctchen222/Tic-Tac-Toe-Solo/internal/api/controller"
	"ctchen222/Tic-Tac-Toe-Solo/internal/api/middleware"
	"ctchen222/Tic-Tac-Toe-Solo/internal/api/response"
	"ctchen222/Tic-Tac-Toe-Solo/internal/hub"
	"ctchen222/Tic-Tac-Toe-Solo/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Solo/internal/player"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// SessionHub is the part of the hub the server drives.
type SessionHub interface {
	CreateSession(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, error)
	CloseSession(ctx context.Context, id string) error
	Register() chan<- *types.RegistrationRequest
}

// Tokens issues and checks session tokens.
type Tokens interface {
	Issue(sessionID string) (string, error)
	Verify(token string) (string, error)
}

type Server struct {
	hub               SessionHub
	tokens            Tokens
	sessionController *controller.SessionController
	upgrader          websocket.Upgrader
	engine            *gin.Engine
}

func NewServer(h SessionHub, tokens Tokens, sessionController *controller.SessionController) *Server {
	s := &Server{
		hub:               h,
		tokens:            tokens,
		sessionController: sessionController,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes()
	return s
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	s.sessionController.RegisterRoutes(api, middleware.RequireSessionToken(s.tokens))

	r.GET("/ws", s.handleWebSocket)
	return r
}

// handleWebSocket upgrades the connection and hands it to the hub. Without a
// session query parameter a new session is created; with one, the token must
// have been issued for it.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	sess, token, status, err := s.resolveSession(ctx, c.Query("session"), c.Query("token"))
	if err != nil {
		slog.WarnContext(ctx, "Refusing websocket connection", "status", status, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Refused websocket connection")
		response.ErrorResponse(c, status, err.Error())
		return
	}
	span.SetAttributes(attribute.String("session.id", sess.ID()))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	p := player.NewPlayer(uuid.New().String(), conn)
	span.SetAttributes(attribute.String("player.id", p.ID))

	req := &types.RegistrationRequest{
		Player:  p,
		Session: sess,
		Token:   token,
	}

	select {
	case s.hub.Register() <- req:
	case <-time.After(5 * time.Second):
		slog.ErrorContext(ctx, "Hub did not accept registration", "session.id", sess.ID())
		span.SetStatus(codes.Error, "Hub did not accept registration")
		conn.Close()
	}
}

// resolveSession returns the session the connection drives and the token to hand back.
func (s *Server) resolveSession(ctx context.Context, sessionID, token string) (*session.Session, string, int, error) {
	if sessionID == "" {
		sess, err := s.hub.CreateSession(ctx)
		if errors.Is(err, hub.ErrTooManySessions) {
			return nil, "", http.StatusServiceUnavailable, err
		}
		if err != nil {
			return nil, "", http.StatusInternalServerError, err
		}
		token, err := s.tokens.Issue(sess.ID())
		if err != nil {
			if closeErr := s.hub.CloseSession(ctx, sess.ID()); closeErr != nil {
				slog.ErrorContext(ctx, "failed to drop session without token", "session.id", sess.ID(), "error", closeErr)
			}
			return nil, "", http.StatusInternalServerError, err
		}
		return sess, token, http.StatusOK, nil
	}

	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, "", http.StatusUnauthorized, err
	}
	if subject != sessionID {
		return nil, "", http.StatusForbidden, errors.New("token does not grant access to this session")
	}
	sess, err := s.hub.Get(sessionID)
	if err != nil {
		return nil, "", http.StatusNotFound, err
	}
	return sess, token, http.StatusOK, nil
}

// requestLogger logs each request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
