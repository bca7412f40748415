package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const recorderTimeout = 2 * time.Second

// QueueRecorder implements engine.Recorder by queueing answer and warning
// mutations to Redis for the persistence workers, and mirroring answers
// into the session's autosave hash so a reload can restore them even if the
// engine process is replaced.
type QueueRecorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewQueueRecorder creates a QueueRecorder.
func NewQueueRecorder(rdb *redis.Client, log zerolog.Logger) *QueueRecorder {
	return &QueueRecorder{
		rdb: rdb,
		log: log.With().Str("component", "queue_recorder").Logger(),
	}
}

// RecordAnswer queues one answer write. Fire and forget: a failed queue
// write is logged, never surfaced to the taker.
func (r *QueueRecorder) RecordAnswer(sessionID uuid.UUID, index int, ans model.Answer) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()

	row := repository.AnswerRow{
		SessionID:      sessionID.String(),
		QuestionIndex:  index,
		QuestionID:     ans.QuestionID.String(),
		Value:          ans.Value,
		LastModifiedAt: ans.LastModifiedAt,
	}
	data, err := json.Marshal(row)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal answer row")
		return
	}

	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, config.WorkerKey.PersistAnswersQueue, data)
	pipe.HSet(ctx, config.CacheKey.SessionAnswersKey(sessionID.String()), index, ans.Value)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("queue answer failed")
	}
}

// RecordWarning queues one integrity warning write.
func (r *QueueRecorder) RecordWarning(sessionID uuid.UUID, ev model.IntegrityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()

	row := repository.WarningRow{
		SessionID:  sessionID.String(),
		Kind:       ev.Kind,
		Message:    ev.Message,
		OccurredAt: ev.Timestamp,
	}
	data, err := json.Marshal(row)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal warning row")
		return
	}

	if err := r.rdb.LPush(ctx, config.WorkerKey.PersistWarningsQueue, data).Err(); err != nil {
		r.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("queue warning failed")
	}
}
