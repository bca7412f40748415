package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/assessly/assessly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository handles graded result rows. Writes are upserts keyed by
// session ID so retried scoring handoffs stay idempotent.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Upsert stores the result, replacing any earlier write for the session.
func (r *ResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	questionsJSON, err := json.Marshal(res.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	topicsJSON, err := json.Marshal(res.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	warningsJSON, err := json.Marshal(res.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO results (session_id, score, questions, topics, warnings, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO UPDATE SET
		   score = EXCLUDED.score,
		   questions = EXCLUDED.questions,
		   topics = EXCLUDED.topics,
		   warnings = EXCLUDED.warnings,
		   graded_at = EXCLUDED.graded_at`,
		res.SessionID, res.Score, questionsJSON, topicsJSON, warningsJSON, res.GradedAt)
	return err
}

// SetExplanation stores a generated explanation inside the questions JSONB
// of an already persisted result. A result not yet flushed by the worker is
// left alone; the caller still has the generated text in hand.
func (r *ResultRepository) SetExplanation(ctx context.Context, sessionID uuid.UUID, index int, text string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE results
		 SET questions = jsonb_set(questions, ARRAY[$2::text, 'explanation'], to_jsonb($3::text))
		 WHERE session_id = $1`,
		sessionID, fmt.Sprintf("%d", index), text)
	return err
}

// GetBySessionID retrieves the persisted result for a session.
func (r *ResultRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Result, error) {
	res := &model.Result{SessionID: sessionID}
	var questionsJSON, topicsJSON, warningsJSON []byte

	err := r.pool.QueryRow(ctx,
		`SELECT score, questions, topics, warnings, graded_at
		 FROM results WHERE session_id = $1`, sessionID,
	).Scan(&res.Score, &questionsJSON, &topicsJSON, &warningsJSON, &res.GradedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questionsJSON, &res.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if err := json.Unmarshal(topicsJSON, &res.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}
	if err := json.Unmarshal(warningsJSON, &res.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return res, nil
}
