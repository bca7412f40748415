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

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AutosaveWorker consumes persist_answers_queue and lands autosaved answers
// in PostgreSQL. The live session keeps answers in memory; this trail is
// what survives a process restart.
type AutosaveWorker struct {
	answers *repository.AnswerRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(answers *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AutosaveWorker started")

	batch := make([]repository.AnswerRow, 0, BatchSize)
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

		item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
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

		var row repository.AnswerRow
		if err := json.Unmarshal([]byte(item[1]), &row); err != nil {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed JSON")
			continue
		}

		batch = append(batch, row)
	}
}

func (w *AutosaveWorker) flushSafe(ctx context.Context, batch []repository.AnswerRow) {
	if len(batch) == 0 {
		return
	}

	// The batch may hold several edits of the same answer. One row per
	// (session, index) pair, newest wins; UNNEST upserts cannot touch the
	// same row twice.
	batch = dedupe(batch)

	if err := w.answers.BulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk upsert failed, attempting row-by-row recovery")
		w.fallbackUpsert(ctx, batch)
	}
}

func (w *AutosaveWorker) fallbackUpsert(ctx context.Context, batch []repository.AnswerRow) {
	requeueList := make([]repository.AnswerRow, 0)

	for _, row := range batch {
		if err := w.answers.Upsert(ctx, row); err != nil {
			w.log.Error().Err(err).
				Str("session_id", row.SessionID).
				Int("question_index", row.QuestionIndex).
				Msg("Upsert failed, requeueing")
			requeueList = append(requeueList, row)
		}
	}

	if len(requeueList) > 0 {
		requeueAnswers(ctx, w.rdb, w.log, requeueList)
	}
}

func dedupe(batch []repository.AnswerRow) []repository.AnswerRow {
	type key struct {
		sessionID string
		index     int
	}
	latest := make(map[key]int, len(batch))
	out := batch[:0]

	for _, row := range batch {
		k := key{row.SessionID, row.QuestionIndex}
		if i, seen := latest[k]; seen {
			if row.LastModifiedAt.After(out[i].LastModifiedAt) {
				out[i] = row
			}
			continue
		}
		latest[k] = len(out)
		out = append(out, row)
	}
	return out
}

func requeueAnswers(ctx context.Context, rdb *redis.Client, log zerolog.Logger, items []repository.AnswerRow) {
	pipe := rdb.Pipeline()
	for _, row := range items {
		data, _ := json.Marshal(row)
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Msg("CRITICAL: failed to requeue answers, data loss occurred")
		return
	}
	log.Info().Int("count", len(items)).Msg("Requeued failed answers")
	// Back off so a hard-down database is not hammered.
	time.Sleep(2 * time.Second)
}
