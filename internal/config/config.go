package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cube_controller/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	LogLevel string
	LogJSON  bool

	// Peripheral link
	PeripheralURL  string
	ReconnectDelay time.Duration

	// Operator API
	JWTSecret     string
	AllowedOrigin string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CommandRateLimit  int
	CommandRateWindow int // seconds

	// Packet test
	PingInterval    time.Duration
	PingMaxInFlight int
	PingTTL         time.Duration

	// Recent link lines kept for GET /api/v1/log
	JournalSize int
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	peripheralURL := os.Getenv("PERIPHERAL_URL")
	if peripheralURL == "" {
		peripheralURL = "ws://127.0.0.1:8090/link"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:  port,
		LogLevel: logLevel,
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		PeripheralURL:  peripheralURL,
		ReconnectDelay: envMillis("RECONNECT_DELAY_MS", 2*time.Second),

		JWTSecret:     jwtSecret,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		CommandRateLimit:  envInt("COMMAND_RATE_LIMIT", 120), // max commands per ->
		CommandRateWindow: envInt("COMMAND_RATE_WINDOW", 60), // -> 60 seconds

		PingInterval:    envMillis("PING_INTERVAL_MS", 100*time.Millisecond),
		PingMaxInFlight: envInt("PING_MAX_INFLIGHT", 10),
		PingTTL:         envMillis("PING_TTL_MS", 3*time.Second),

		JournalSize: envInt("LINE_LOG_SIZE", 300),
	}
}

// envInt returns a positive integer from key, or def when unset or invalid.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.Warn("ignoring invalid config value", "key", key, "value", v)
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	n := envInt(key, 0)
	if n == 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
