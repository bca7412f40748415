package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/assessly/assessly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles assessment session rows. The live state machine
// lives in the engine; this table records creation and, once the result
// worker lands it, completion.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session with its generated question set.
func (r *SessionRepository) Create(ctx context.Context, s *model.AssessmentSession, questions []model.Question) error {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, kind, status, duration_seconds, questions, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Kind, s.Status, s.Duration, questionsJSON, s.StartedAt)
	return err
}

// GetByID retrieves one session row without its question set.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, kind, status, duration_seconds, started_at, finished_at, final_score
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Kind, &s.Status, &s.Duration, &s.StartedAt, &s.FinishedAt, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetQuestions retrieves the stored question set for a session.
func (r *SessionRepository) GetQuestions(ctx context.Context, id uuid.UUID) ([]model.Question, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx,
		`SELECT questions FROM sessions WHERE id = $1`, id,
	).Scan(&raw); err != nil {
		return nil, err
	}

	var questions []model.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return questions, nil
}

// Complete marks a session finished with its final score. Called by the
// result worker; safe to repeat.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, score float64, finishedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $1, final_score = $2, finished_at = $3
		 WHERE id = $4`,
		model.SessionStatusSubmitted, score, finishedAt, id)
	return err
}
