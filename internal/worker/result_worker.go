package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ResultWorker consumes persist_results_queue. For each graded result it
// upserts the results row, marks the session row finished, and drops the
// session's autosave buffer from Redis.
type ResultWorker struct {
	results  *repository.ResultRepository
	sessions *repository.SessionRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(results *repository.ResultRepository, sessions *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		results:  results,
		sessions: sessions,
		rdb:      rdb,
		log:      log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ResultWorker stopping")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistResultsQueue).Result()
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

		var result model.Result
		if err := json.Unmarshal([]byte(item[1]), &result); err != nil {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed JSON")
			continue
		}

		if err := w.persist(ctx, &result); err != nil {
			w.log.Error().Err(err).
				Str("session_id", result.SessionID.String()).
				Msg("Persist failed, requeueing")
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item[1])
			time.Sleep(2 * time.Second)
		}
	}
}

func (w *ResultWorker) persist(ctx context.Context, result *model.Result) error {
	if err := w.results.Upsert(ctx, result); err != nil {
		return err
	}
	if err := w.sessions.Complete(ctx, result.SessionID, result.Score, result.GradedAt); err != nil {
		return err
	}

	// The autosave buffer is superseded by the persisted result.
	sessionID := result.SessionID.String()
	w.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(sessionID),
		config.CacheKey.SessionStartKey(sessionID),
	)

	w.log.Info().
		Str("session_id", sessionID).
		Float64("score", result.Score).
		Msg("Result persisted")
	return nil
}
