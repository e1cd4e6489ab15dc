package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cube_controller/internal/logger"
	"cube_controller/internal/service"

	"github.com/joho/godotenv"
)

// Prints a bearer token for the operator API and observer stream.
// OPERATOR_ID and TOKEN_TTL_HOURS are optional.
func main() {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret)

	operatorID := int64(1)
	if v := os.Getenv("OPERATOR_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			logger.Fatal("invalid OPERATOR_ID", "value", v)
		}
		operatorID = n
	}

	ttl := service.DefaultTokenTTL
	if v := os.Getenv("TOKEN_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Fatal("invalid TOKEN_TTL_HOURS", "value", v)
		}
		ttl = time.Duration(n) * time.Hour
	}

	token, err := service.GenerateJWT(operatorID, ttl)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
