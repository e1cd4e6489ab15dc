package middleware

import (
	"strconv"
	"time"

	"cube_controller/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLog tags each request with an id, logs it once finished and counts
// it by route and status.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		ctx := logger.ContextWithAttrs(c.Request.Context(), "request_id", id)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		log := logger.WithContext(c.Request.Context())
		if op, ok := OperatorID(c); ok {
			log = log.With("operator", op)
		}
		log.Debug("http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start))
	}
}
