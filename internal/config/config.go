// Package config loads process configuration from the environment, lifted
// out of the teacher's inline os.Getenv-in-main style (cmd/server/main.go)
// into its own package because this repository's main wires substantially
// more collaborators (lock service, idempotency, outbox) than the teacher's
// did.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-sourced setting main.go needs to wire the
// process. godotenv.Load() is called once by the caller before New().
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	JWTSecret      string
	ServerPort     string
	AllowedOrigins string
	LockTTL        time.Duration
}

// New reads Config from the environment. DATABASE_URL is the only setting
// with no usable default — everything else falls back to a value safe for
// local development.
func New() (Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL environment variable not set")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	lockTTL := 30 * time.Second
	if raw := os.Getenv("LOCK_TTL_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			lockTTL = time.Duration(secs) * time.Second
		}
	}

	return Config{
		DatabaseURL:    dbURL,
		RedisAddr:      redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ServerPort:     port,
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		LockTTL:        lockTTL,
	}, nil
}
