package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionResult is the graded outcome for one question.
type QuestionResult struct {
	QuestionID  uuid.UUID    `json:"question_id"`
	Index       int          `json:"index"`
	Kind        QuestionKind `json:"kind"`
	Topic       string       `json:"topic"`
	Answer      string       `json:"answer,omitempty"`
	Correct     *bool        `json:"correct,omitempty"` // nil for ungraded kinds
	Explanation string       `json:"explanation,omitempty"`
}

// TopicScore is the per-topic percentage used for the results breakdown.
type TopicScore struct {
	Topic   string  `json:"topic"`
	Percent float64 `json:"percent"`
}

// Result is the graded record for a submitted session.
type Result struct {
	SessionID uuid.UUID        `json:"session_id"`
	Score     float64          `json:"score"`
	Questions []QuestionResult `json:"questions"`
	Topics    []TopicScore     `json:"topics"`
	Warnings  []IntegrityEvent `json:"warnings"`
	GradedAt  time.Time        `json:"graded_at"`
}
