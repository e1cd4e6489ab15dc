package handlers

import (
	"context"
	"net/http"
	"strings"

	"cube_controller/internal/cube"
	"cube_controller/internal/game"
	"cube_controller/internal/session"

	"github.com/gin-gonic/gin"
)

type gameStartRequest struct {
	Remaining  int `json:"remaining" binding:"required,min=1"`
	DurationMS int `json:"duration_ms" binding:"required,min=1"`
}

type roundStartRequest struct {
	Type       string `json:"type" binding:"required"`
	From       string `json:"from"`
	To         string `json:"to"`
	Mode       string `json:"mode"`
	DurationMS int    `json:"duration_ms" binding:"required,min=1"`
	Remaining  int    `json:"remaining" binding:"required,min=1"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type commandRequest struct {
	Line string `json:"line" binding:"required"`
}

// GetSession returns the current controller snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.State())
}

// StartGame begins an adaptive game; the first round follows the
// peripheral's acknowledgement.
func (h *Handler) StartGame(c *gin.Context) {
	var req gameStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Session.StartGame(req.Remaining, req.DurationMS); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Session.State())
}

func (h *Handler) ManualGameStart(c *gin.Context) {
	var req gameStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Session.ManualGameStart(req.DurationMS, req.Remaining); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Session.State())
}

// EndGame stops the game and waits until the peripheral has been told.
func (h *Handler) EndGame(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.Session.EndGame(ctx); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.State())
}

// SetMode starts a timed training session; end it with EndGame.
func (h *Handler) SetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	mode, err := session.ParseSessionMode(req.Mode)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Session.SetMode(mode); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Session.State())
}

// Lines returns recent link traffic, oldest first.
func (h *Handler) Lines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lines": h.Session.Lines()})
}

// ManualRoundStart sends an operator-defined round, bypassing the planner.
func (h *Handler) ManualRoundStart(c *gin.Context) {
	var req roundStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var r game.Round
	switch game.Kind(strings.ToUpper(strings.TrimSpace(req.Type))) {
	case game.KindPause:
		r = game.NewPauseRound(req.DurationMS, req.Remaining)
	case game.KindArrow:
		from, err := cube.ParseFace(req.From)
		if err != nil {
			badRequest(c, "from: "+err.Error())
			return
		}
		to, err := cube.ParseFace(req.To)
		if err != nil {
			badRequest(c, "to: "+err.Error())
			return
		}
		mode, err := game.ParseMode(req.Mode)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		r, err = game.NewArrowRound(from, to, mode, req.DurationMS, req.Remaining)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
	default:
		badRequest(c, "type must be ARROW or PAUSE")
		return
	}

	if err := h.Session.ManualRoundStart(r); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Session.State())
}

// Command forwards a raw line to the peripheral and waits for the write.
func (h *Handler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.Session.Command(ctx, req.Line); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": strings.TrimSpace(req.Line)})
}

func (h *Handler) StartPingTest(c *gin.Context) {
	if err := h.Session.StartPingTest(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Session.PingStats())
}

func (h *Handler) StopPingTest(c *gin.Context) {
	h.Session.StopPingTest()
	c.JSON(http.StatusOK, h.Session.PingStats())
}

func (h *Handler) PingStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.PingStats())
}
