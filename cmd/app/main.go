package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cube_controller/internal/config"
	httpServer "cube_controller/internal/http"
	"cube_controller/internal/http/middleware"
	"cube_controller/internal/logger"
	"cube_controller/internal/service"
	"cube_controller/internal/session"
	"cube_controller/internal/transport"
	"cube_controller/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := transport.NewWSBridge(cfg.PeripheralURL, cfg.ReconnectDelay, logger.Get())
	ctrl, err := session.New(bridge, session.Options{
		Logger:          logger.Get(),
		PingInterval:    cfg.PingInterval,
		PingMaxInFlight: cfg.PingMaxInFlight,
		PingTTL:         cfg.PingTTL,
		JournalSize:     cfg.JournalSize,
	})
	if err != nil {
		logger.Fatal("session init failed", "error", err)
	}

	hub := ws.NewHub(ctrl.State, logger.Component("observers"))
	ctrl.Subscribe(hub.Publish)

	go hub.Run(ctx)
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("peripheral bridge stopped", "error", err)
		}
	}()
	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session stopped", "error", err)
		}
	}()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())

	// CORS for the operator console
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Session:   ctrl,
		Connected: bridge.Connected,
		Hub:       hub,
		Version:   version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "peripheral", cfg.PeripheralURL, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// tell the peripheral the game is over while the queue is still running
	if err := ctrl.EndGame(shutdownCtx); err != nil {
		logger.Debug("game end on shutdown", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()

	logger.Info("server exited")
}
