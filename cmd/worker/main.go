package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendboard/internal/config"
	"attendboard/internal/queue"
	"attendboard/internal/schedule"
	"attendboard/internal/sheet"
	"attendboard/internal/store"
)

// Worker consumes sync triggers, fetches the schedule feed, and upserts it
// into the store. Triggers arriving within the debounce window collapse into
// a single pass, so a dashboard being refreshed repeatedly does not hammer
// the spreadsheet host.
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendboard:sync")
	}

	fetcher := sheet.NewFetcher(cfg.SheetURL, redisClient.Client, cfg.SheetCacheTTL)
	scheduleRepo := schedule.NewRepository(db.Client)
	syncer := schedule.NewSyncer(fetcher, scheduleRepo, cfg.SyncBatchSize)

	jobs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for sync triggers...")
	for job := range jobs {
		if job.Type != queue.TypeSyncSchedule {
			continue
		}
		role := job.Role

		// Absorb triggers that pile up inside the debounce window.
		window := time.After(cfg.SyncDebounce)
	absorb:
		for {
			select {
			case j, ok := <-jobs:
				if !ok {
					break absorb
				}
				if j.Type == queue.TypeSyncSchedule {
					role = j.Role
				}
			case <-window:
				break absorb
			}
		}

		if err := syncer.Run(ctx, role); err != nil {
			var syncErr *schedule.ErrSyncFailed
			switch {
			case errors.Is(err, sheet.ErrInvalidFeedFormat):
				log.Printf("sync aborted: %v", err)
			case errors.As(err, &syncErr):
				log.Printf("sync aborted mid-batch, earlier batches kept: %v", err)
			default:
				log.Printf("sync failed: %v", err)
			}
		}
	}

	log.Println("worker stopped")
}
