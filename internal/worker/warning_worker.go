package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WarningWorker consumes persist_warnings_queue and lands integrity
// warnings in PostgreSQL as a bulk insert.
type WarningWorker struct {
	warnings *repository.WarningRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewWarningWorker creates a new WarningWorker.
func NewWarningWorker(warnings *repository.WarningRepository, rdb *redis.Client, log zerolog.Logger) *WarningWorker {
	return &WarningWorker{
		warnings: warnings,
		rdb:      rdb,
		log:      log.With().Str("component", "warning_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *WarningWorker) Start(ctx context.Context) {
	w.log.Info().Msg("WarningWorker started")

	batch := make([]repository.WarningRow, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested, flushing remaining batch")
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(flushCtx, batch)
			cancel()
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistWarningsQueue).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error, sleeping 3s")
				time.Sleep(3 * time.Second)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}

		var row repository.WarningRow
		if err := json.Unmarshal([]byte(item[1]), &row); err != nil {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed JSON")
			continue
		}

		batch = append(batch, row)
	}
}

func (w *WarningWorker) flushSafe(ctx context.Context, batch []repository.WarningRow) {
	if len(batch) == 0 {
		return
	}

	if err := w.warnings.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *WarningWorker) fallbackInsert(ctx context.Context, batch []repository.WarningRow) {
	requeueList := make([]repository.WarningRow, 0)

	for _, row := range batch {
		if err := w.warnings.Insert(ctx, row); err != nil {
			w.log.Error().Err(err).
				Str("session_id", row.SessionID).
				Msg("Insert failed, requeueing")
			requeueList = append(requeueList, row)
		}
	}

	if len(requeueList) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()
	for _, row := range requeueList {
		data, _ := json.Marshal(row)
		pipe.RPush(ctx, config.WorkerKey.PersistWarningsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: failed to requeue warnings, data loss occurred")
		return
	}
	w.log.Info().Int("count", len(requeueList)).Msg("Requeued failed warnings")
	time.Sleep(2 * time.Second)
}
