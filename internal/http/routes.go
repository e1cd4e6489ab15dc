package http

import (
	"time"

	"cube_controller/internal/config"
	"cube_controller/internal/http/handlers"
	"cube_controller/internal/http/middleware"
	"cube_controller/internal/ws"

	"github.com/gin-gonic/gin"
)

// Deps are the runtime pieces the routes are bound to.
type Deps struct {
	Session   handlers.Session
	Connected func() bool
	Hub       *ws.Hub
	Version   string
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	h := handlers.NewHandler(d.Session)
	healthHandler := handlers.NewHealthHandler(d.Connected, middleware.RedisEnabled, d.Version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	window := time.Duration(cfg.CommandRateWindow) * time.Second

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWT(), middleware.RateLimit(cfg.CommandRateLimit, window))
	registerAPIRoutes(v1, h)

	// Observer stream
	r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	api.GET("/session", h.GetSession)
	api.POST("/session/mode", h.SetMode)
	api.GET("/log", h.Lines)

	// Game flow
	api.POST("/game/start", h.StartGame)
	api.POST("/game/manual", h.ManualGameStart)
	api.POST("/game/end", h.EndGame)
	api.POST("/round/start", h.ManualRoundStart)

	// Raw firmware commands (START, STOP, BEEP1, BEEP2, ...)
	api.POST("/command", h.Command)

	// Packet test
	api.POST("/pingtest/start", h.StartPingTest)
	api.POST("/pingtest/stop", h.StopPingTest)
	api.GET("/pingtest", h.PingStats)
}
