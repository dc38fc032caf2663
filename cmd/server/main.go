package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	httpapi "ledgercore/internal/adapters/http"
	"ledgercore/internal/app"
	"ledgercore/internal/config"
	"ledgercore/internal/db"
	"ledgercore/internal/lock"
	"ledgercore/internal/outbox"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	lockSvc := lock.NewRedisService(redisClient)

	// No pub/sub substrate is wired up (spec.md §1 excludes it); the
	// out-of-scope projection worker is the durable delivery path, so the
	// fast path here simply discards.
	publisher := outbox.NewAsyncPublisher(outbox.NoOpPublisher{}, 256)
	defer publisher.Close()

	svc := app.NewService(pool, lockSvc, publisher)
	handler := httpapi.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret)

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
