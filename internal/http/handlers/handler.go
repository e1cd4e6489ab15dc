package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cube_controller/internal/game"
	"cube_controller/internal/logger"
	"cube_controller/internal/session"

	"github.com/gin-gonic/gin"
)

const commandTimeout = 5 * time.Second

// Session is the controller surface the operator API drives.
type Session interface {
	State() session.State
	StartGame(remaining, durationMS int) error
	ManualGameStart(durationMS, remaining int) error
	ManualRoundStart(r game.Round) error
	EndGame(ctx context.Context) error
	SetMode(mode session.SessionMode) error
	Lines() []session.LineEntry
	Command(ctx context.Context, line string) error
	StartPingTest() error
	StopPingTest()
	PingStats() session.PingStats
}

type Handler struct {
	Session Session
}

func NewHandler(s Session) *Handler {
	return &Handler{Session: s}
}

// fail maps controller errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, session.ErrInvalidParams):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrDropped),
		errors.Is(err, session.ErrQueueClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	logger.WithContext(c.Request.Context()).Warn("operator request failed",
		"route", c.FullPath(), "status", status, "error", err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
