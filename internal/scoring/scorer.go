// Package scoring grades submitted session snapshots. Choice questions are
// graded mechanically against the stored correct option; free-text and code
// answers are recorded ungraded. The finished result is queued for the
// result worker to persist.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/engine"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Service implements engine.Scorer. Scoring the same snapshot twice yields
// the same result; persistence is an upsert keyed by session ID, so retries
// are safe.
type Service struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewService creates a scoring Service.
func NewService(rdb *redis.Client, log zerolog.Logger) *Service {
	return &Service{
		rdb: rdb,
		log: log.With().Str("component", "scoring").Logger(),
	}
}

// Score grades the snapshot and queues the result for persistence. Returns
// an error only when the result could not be queued; the engine retries the
// whole handoff in that case.
func (s *Service) Score(ctx context.Context, snap engine.Snapshot) (*model.Result, error) {
	result := grade(snap)

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		return nil, fmt.Errorf("queue result: %w", err)
	}

	s.log.Info().
		Str("session_id", snap.SessionID.String()).
		Float64("score", result.Score).
		Bool("expired", snap.Expired).
		Msg("session graded")

	return result, nil
}

func grade(snap engine.Snapshot) *model.Result {
	result := &model.Result{
		SessionID: snap.SessionID,
		Questions: make([]model.QuestionResult, 0, len(snap.Questions)),
		Warnings:  snap.Warnings,
		GradedAt:  snap.SubmittedAt,
	}

	gradeable := 0
	correct := 0
	type topicTally struct{ total, correct int }
	topics := make(map[string]*topicTally)

	for i, q := range snap.Questions {
		qr := model.QuestionResult{
			QuestionID: q.ID,
			Index:      i,
			Kind:       q.Kind,
			Topic:      q.Topic,
		}
		if ans, ok := snap.Answers[i]; ok {
			qr.Answer = ans.Value
		}

		if q.Kind == model.QuestionKindChoice {
			gradeable++
			tally := topics[q.Topic]
			if tally == nil {
				tally = &topicTally{}
				topics[q.Topic] = tally
			}
			tally.total++

			ok := qr.Answer != "" && qr.Answer == q.CorrectOption
			qr.Correct = &ok
			if ok {
				correct++
				tally.correct++
			}
		}

		result.Questions = append(result.Questions, qr)
	}

	if gradeable > 0 {
		result.Score = 100 * float64(correct) / float64(gradeable)
	}

	for topic, tally := range topics {
		result.Topics = append(result.Topics, model.TopicScore{
			Topic:   topic,
			Percent: 100 * float64(tally.correct) / float64(tally.total),
		})
	}
	sort.Slice(result.Topics, func(i, j int) bool {
		return result.Topics[i].Topic < result.Topics[j].Topic
	})

	return result
}
