package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"learnhub/internal/admin"
	"learnhub/internal/config"
	"learnhub/internal/queue"
	"learnhub/internal/store"
)

// Worker consumes study-activity messages and folds them into the per-day
// activity rollups the admin stats endpoint reads.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisOpTimeout)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "learnhub:activity")
	}

	repo := admin.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for act := range messages {
		if err := repo.BumpRollup(ctx, act.Day, act.CourseID); err != nil {
			log.Printf("rollup update failed for %s/%s: %v", act.CourseID, act.Day, err)
			continue
		}
		log.Printf("rollup updated: course %s day %s", act.CourseID, act.Day)
	}

	log.Println("worker stopped")
}
