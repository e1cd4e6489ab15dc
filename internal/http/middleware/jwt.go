package middleware

import (
	"net/http"
	"strings"

	"cube_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const operatorKey = "operator_id"

// JWT requires a bearer token and stores the operator id in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := service.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(operatorKey, id)
		c.Next()
	}
}

// OperatorID returns the id set by JWT.
func OperatorID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
