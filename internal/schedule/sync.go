package schedule

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"attendboard/internal/auth"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_schedule_sync_runs_total",
		Help: "Schedule sync attempts by outcome.",
	}, []string{"outcome"})

	syncRowsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendboard_schedule_sync_rows_upserted_total",
		Help: "Unique schedule rows written by sync batches.",
	})
)

// ErrSyncFailed wraps a store failure that aborted a sync pass mid-batch.
// Batches committed before the failure stay committed.
type ErrSyncFailed struct {
	Cause error
}

func (e *ErrSyncFailed) Error() string {
	return fmt.Sprintf("schedule sync failed: %v", e.Cause)
}

func (e *ErrSyncFailed) Unwrap() error {
	return e.Cause
}

// FeedSource produces parsed feed rows.
type FeedSource interface {
	Fetch(ctx context.Context) ([][]string, error)
}

// UpsertStore receives deduplicated batches.
type UpsertStore interface {
	UpsertBatch(ctx context.Context, entries []Entry) error
}

// Syncer runs one feed-to-store synchronization pass.
type Syncer struct {
	feed      FeedSource
	store     UpsertStore
	batchSize int
}

// NewSyncer creates a syncer with the given batch size (100 when <= 0).
func NewSyncer(feed FeedSource, store UpsertStore, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Syncer{feed: feed, store: store, batchSize: batchSize}
}

// Run fetches the feed, normalizes and deduplicates it, and upserts the
// result in sequential batches. Only administrators and moderators may write
// the schedule table; any other role skips the sync and keeps reading what is
// already persisted. That silent degrade is deliberate, not an error.
func (s *Syncer) Run(ctx context.Context, role string) error {
	if !auth.CanSyncSchedule(role) {
		log.Printf("sync skipped: role %q has no schedule write permission", role)
		syncRuns.WithLabelValues("skipped").Inc()
		return nil
	}

	runID := uuid.NewString()[:8]

	rows, err := s.feed.Fetch(ctx)
	if err != nil {
		syncRuns.WithLabelValues("feed_error").Inc()
		return err
	}

	entries, err := Normalize(rows, ColumnMap)
	if err != nil {
		syncRuns.WithLabelValues("header_error").Inc()
		return err
	}

	unique := Deduplicate(entries)
	if len(unique) == 0 {
		syncRuns.WithLabelValues("empty").Inc()
		return nil
	}

	// Batches run one at a time to bound load on the store; a failure aborts
	// the remainder but earlier batches stay committed.
	for start := 0; start < len(unique); start += s.batchSize {
		end := start + s.batchSize
		if end > len(unique) {
			end = len(unique)
		}
		if err := s.store.UpsertBatch(ctx, unique[start:end]); err != nil {
			syncRuns.WithLabelValues("store_error").Inc()
			return &ErrSyncFailed{Cause: err}
		}
		syncRowsUpserted.Add(float64(end - start))
	}

	log.Printf("sync %s: upserted %d unique rows (%d feed rows)", runID, len(unique), len(rows)-1)
	syncRuns.WithLabelValues("ok").Inc()
	return nil
}
