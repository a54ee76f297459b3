package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tutoring/internal/config"
	"tutoring/internal/institute"
	"tutoring/internal/queue"
	"tutoring/internal/store"
	"tutoring/internal/worker"
)

// Worker records change events from the Redis queue and sweeps expired notices.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is drained inside the api process; run the worker with the redis queue")
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	svc := institute.NewService(institute.NewPostgresRepository(db.Client), redisClient, nil, cfg.CacheTTL)
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	log.Println("worker started, waiting for changes...")
	if err := worker.New(svc, cfg.NoticeSweepInterval).Run(ctx, q); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
