package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WarningRow is one integrity warning as queued for persistence.
type WarningRow struct {
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WarningRepository persists integrity warnings.
type WarningRepository struct {
	pool *pgxpool.Pool
}

// NewWarningRepository creates a new WarningRepository.
func NewWarningRepository(pool *pgxpool.Pool) *WarningRepository {
	return &WarningRepository{pool: pool}
}

// BulkInsert writes a batch of warnings with CopyFrom. Fails as a unit; the
// caller falls back to row-by-row inserts.
func (r *WarningRepository) BulkInsert(ctx context.Context, batch []WarningRow) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, w := range batch {
		sessionID, err := uuid.Parse(w.SessionID)
		if err != nil {
			return err
		}
		rows = append(rows, []interface{}{sessionID, w.Kind, w.Message, w.OccurredAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"session_warnings"},
		[]string{"session_id", "kind", "message", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single warning row.
func (r *WarningRepository) Insert(ctx context.Context, w WarningRow) error {
	sessionID, err := uuid.Parse(w.SessionID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_warnings (session_id, kind, message, occurred_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, w.Kind, w.Message, w.OccurredAt)
	return err
}
