package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	connected func() bool
	redis     func() bool
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. connected reports the
// peripheral link; redis reports whether the shared rate limiter is in use.
func NewHealthHandler(connected, redis func() bool, version string) *HealthHandler {
	return &HealthHandler{
		connected: connected,
		redis:     redis,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness checks)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness is healthy only while the peripheral link is up.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := make(map[string]string)
	ready := h.connected()
	if ready {
		checks["peripheral"] = "connected"
	} else {
		checks["peripheral"] = "disconnected"
	}

	if h.redis != nil && h.redis() {
		checks["rate_limiter"] = "redis"
	} else {
		checks["rate_limiter"] = "memory"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	checks["memory_alloc_mb"] = formatMB(m.Alloc)

	status := "healthy"
	statusCode := http.StatusOK
	if !ready {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health reports the process as up and includes the link state.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    h.version,
		"peripheral": h.connected(),
	})
}

func formatMB(bytes uint64) string {
	mb := float64(bytes) / 1024 / 1024
	return fmt.Sprintf("%.2f", mb)
}
