package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRow is one autosaved answer as queued for persistence.
type AnswerRow struct {
	SessionID      string    `json:"session_id"`
	QuestionIndex  int       `json:"question_index"`
	QuestionID     string    `json:"question_id"`
	Value          string    `json:"value"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// AnswerRepository persists autosaved answers. Last write wins per
// (session, index) pair.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes one answer row. Stale rows never overwrite newer ones.
func (r *AnswerRepository) Upsert(ctx context.Context, row AnswerRow) error {
	sessionID, err := uuid.Parse(row.SessionID)
	if err != nil {
		return err
	}
	questionID, err := uuid.Parse(row.QuestionID)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_answers (session_id, question_index, question_id, value, last_modified_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_index) DO UPDATE SET
		   value = EXCLUDED.value,
		   last_modified_at = EXCLUDED.last_modified_at
		 WHERE session_answers.last_modified_at <= EXCLUDED.last_modified_at`,
		sessionID, row.QuestionIndex, questionID, row.Value, row.LastModifiedAt)
	return err
}

// BulkUpsert writes a batch of answer rows with a single UNNEST statement.
// Fails as a unit; the caller falls back to row-by-row upserts.
func (r *AnswerRepository) BulkUpsert(ctx context.Context, batch []AnswerRow) error {
	n := len(batch)
	sessionIDs := make([]uuid.UUID, 0, n)
	indexes := make([]int, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	values := make([]string, 0, n)
	modifiedAts := make([]time.Time, 0, n)

	for _, row := range batch {
		sID, err := uuid.Parse(row.SessionID)
		if err != nil {
			return err
		}
		qID, err := uuid.Parse(row.QuestionID)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, sID)
		indexes = append(indexes, row.QuestionIndex)
		questionIDs = append(questionIDs, qID)
		values = append(values, row.Value)
		modifiedAts = append(modifiedAts, row.LastModifiedAt)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_answers (session_id, question_index, question_id, value, last_modified_at)
		SELECT u.session_id, u.question_index, u.question_id, u.value, u.last_modified_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::uuid[],
			$4::text[],
			$5::timestamptz[]
		) AS u (session_id, question_index, question_id, value, last_modified_at)
		ON CONFLICT (session_id, question_index) DO UPDATE SET
		  value = EXCLUDED.value,
		  last_modified_at = EXCLUDED.last_modified_at
		WHERE session_answers.last_modified_at <= EXCLUDED.last_modified_at`,
		sessionIDs, indexes, questionIDs, values, modifiedAts)
	return err
}
