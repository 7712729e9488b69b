package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/Tic-Tac-Toe-Solo/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Solo/internal/api/response"
	"ctchen222/Tic-Tac-Toe-Solo/internal/api/service"
	"ctchen222/Tic-Tac-Toe-Solo/internal/auth"
	"ctchen222/Tic-Tac-Toe-Solo/internal/game"
	"ctchen222/Tic-Tac-Toe-Solo/internal/hub"
	"ctchen222/Tic-Tac-Toe-Solo/internal/session"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("api")

// SessionController handles session-related HTTP requests.
type SessionController struct {
	sessionService service.SessionService
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessionService service.SessionService) *SessionController {
	return &SessionController{
		sessionService: sessionService,
	}
}

// RegisterRoutes mounts the session endpoints. authorize guards every route bound to an existing session.
func (sc *SessionController) RegisterRoutes(rg *gin.RouterGroup, authorize gin.HandlerFunc) {
	rg.POST("/sessions", sc.Create)

	owned := rg.Group("/sessions/:id", authorize)
	owned.GET("", sc.Get)
	owned.DELETE("", sc.Close)
	owned.POST("/moves", sc.SubmitMove)
	owned.POST("/opponent", sc.ResolveOpponent)
	owned.POST("/rounds", sc.NewRound)
	owned.DELETE("/score", sc.ResetScore)
}

// Create handles the session creation endpoint.
func (sc *SessionController) Create(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "api.CreateSession")
	defer span.End()

	res, err := sc.sessionService.Create(ctx)
	if err != nil {
		sc.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("session.id", res.SessionID))
	response.CreatedResponse(c, res)
}

// Get returns the session snapshot.
func (sc *SessionController) Get(c *gin.Context) {
	ctx, span := sc.start(c, "api.GetSession")
	defer span.End()

	snap, err := sc.sessionService.Get(ctx, c.Param("id"))
	sc.respond(c, span, snap, err)
}

// SubmitMove handles the human's move.
func (sc *SessionController) SubmitMove(c *gin.Context) {
	ctx, span := sc.start(c, "api.SubmitMove")
	defer span.End()

	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("cell.index", *req.Index))

	snap, err := sc.sessionService.SubmitMove(ctx, c.Param("id"), *req.Index)
	sc.respond(c, span, snap, err)
}

// ResolveOpponent applies the opponent's pending move. HTTP clients call it after their own delay.
func (sc *SessionController) ResolveOpponent(c *gin.Context) {
	ctx, span := sc.start(c, "api.ResolveOpponent")
	defer span.End()

	snap, err := sc.sessionService.ResolveOpponent(ctx, c.Param("id"))
	sc.respond(c, span, snap, err)
}

// NewRound starts the next round, or abandons the current one with ?abandon=true.
func (sc *SessionController) NewRound(c *gin.Context) {
	ctx, span := sc.start(c, "api.NewRound")
	defer span.End()

	var query models.NewRoundQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid query")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Bool("round.abandon", query.Abandon))

	snap, err := sc.sessionService.NewRound(ctx, c.Param("id"), query.Abandon)
	sc.respond(c, span, snap, err)
}

// ResetScore zeroes the score.
func (sc *SessionController) ResetScore(c *gin.Context) {
	ctx, span := sc.start(c, "api.ResetScore")
	defer span.End()

	snap, err := sc.sessionService.ResetScore(ctx, c.Param("id"))
	sc.respond(c, span, snap, err)
}

// Close ends the session.
func (sc *SessionController) Close(c *gin.Context) {
	ctx, span := sc.start(c, "api.CloseSession")
	defer span.End()

	if err := sc.sessionService.Close(ctx, c.Param("id")); err != nil {
		sc.fail(c, span, err)
		return
	}
	response.SuccessResponse(c, gin.H{"message": "Session closed"})
}

func (sc *SessionController) start(c *gin.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(c.Request.Context(), name, trace.WithAttributes(
		attribute.String("session.id", c.Param("id")),
	))
}

func (sc *SessionController) respond(c *gin.Context, span trace.Span, snap session.Snapshot, err error) {
	if err != nil {
		sc.fail(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("session.state", string(snap.State)))
	response.SuccessResponse(c, snap)
}

func (sc *SessionController) fail(c *gin.Context, span trace.Span, err error) {
	respErr := toResponseError(err)
	if respErr.Code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, respErr.Extras)
	response.ErrorResponseFrom(c, respErr)
}

// toResponseError maps domain errors to HTTP status codes. Internal failures do not leak their details.
func toResponseError(err error) response.Error {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound):
		return response.NewError(false, http.StatusNotFound, err.Error())
	case errors.Is(err, hub.ErrTooManySessions):
		return response.NewError(false, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		return response.NewError(false, http.StatusUnauthorized, err.Error())
	case errors.Is(err, game.ErrInvalidMove):
		return response.NewError(false, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, session.ErrIllegalState):
		return response.NewError(false, http.StatusConflict, err.Error())
	default:
		return response.NewError(false, http.StatusInternalServerError, "internal error")
	}
}
