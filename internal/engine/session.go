package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assessly/assessly-backend/internal/model"
)

// Snapshot is the immutable copy of session state taken at the moment
// submission begins. It is the unit handed to the scoring service.
type Snapshot struct {
	SessionID   uuid.UUID
	Kind        model.TestKind
	Questions   []model.Question
	Answers     map[int]model.Answer
	Warnings    []model.IntegrityEvent
	StartedAt   time.Time
	SubmittedAt time.Time
	Expired     bool
}

// Scorer grades a snapshot and produces the terminal result. The
// implementation must be idempotent under retry of the same session ID.
type Scorer interface {
	Score(ctx context.Context, snap Snapshot) (*model.Result, error)
}

// Recorder receives fire-and-forget notifications of session mutations so
// the service layer can queue autosave and warning persistence. Calls must
// be quick; the controller invokes them outside its lock.
type Recorder interface {
	RecordAnswer(sessionID uuid.UUID, index int, ans model.Answer)
	RecordWarning(sessionID uuid.UUID, ev model.IntegrityEvent)
}

// NopRecorder discards all notifications.
type NopRecorder struct{}

func (NopRecorder) RecordAnswer(uuid.UUID, int, model.Answer)     {}
func (NopRecorder) RecordWarning(uuid.UUID, model.IntegrityEvent) {}

// RetryConfig bounds the scoring handoff retries.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryConfig retries the handoff three times with jittered
// exponential backoff starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseBackoff: 500 * time.Millisecond}
}
