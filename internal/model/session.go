package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states. Transitions are
// monotonic: IN_PROGRESS → SUBMITTING → SUBMITTED, with EXPIRED as an
// alternate entry into SUBMITTING when the countdown runs out.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusExpired    SessionStatus = "EXPIRED"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
)

// Terminal reports whether no further mutation of session state is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSubmitted
}

// TestKind enumerates the configurable assessment categories.
type TestKind string

const (
	TestKindAptitude TestKind = "aptitude"
	TestKindCoding   TestKind = "coding"
	TestKindMixed    TestKind = "mixed"
)

// TestConfig is the payload for creating a new assessment session.
type TestConfig struct {
	Kind            TestKind `json:"kind" binding:"required,oneof=aptitude coding mixed"`
	DifficultyLevel int      `json:"difficulty_level" binding:"min=0,max=100"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,min=10,max=90"`
	QuestionCount   int      `json:"question_count" binding:"required,min=1,max=50"`
	Adaptive        bool     `json:"adaptive"`
}

// AssessmentSession is the persisted session row. The live state machine is
// owned by the engine; this row records creation and, once the result
// worker lands it, completion.
type AssessmentSession struct {
	ID         uuid.UUID     `json:"id"`
	Kind       TestKind      `json:"kind"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     SessionStatus `json:"status"`
	Duration   int           `json:"duration_seconds"`
	FinalScore *float64      `json:"final_score,omitempty"`
}

// IntegrityEvent is an advisory signal from the integrity monitor. It never
// blocks the taker and never mutates answers.
type IntegrityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

const (
	// IntegrityKindAttentionLoss flags suspected focus away from the test.
	IntegrityKindAttentionLoss = "attention-loss"
)

// Answer is a taker's current response for one question index. Overwritten
// on each edit; no history is kept.
type Answer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Value          string    `json:"value"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// SessionView is the client-facing snapshot of live session state, rebuilt
// on every poll so a page reload can restore answers and the countdown.
type SessionView struct {
	ID               uuid.UUID        `json:"id"`
	Status           SessionStatus    `json:"status"`
	CurrentIndex     int              `json:"current_index"`
	QuestionCount    int              `json:"question_count"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Answers          map[int]Answer   `json:"answers"`
	Warnings         []IntegrityEvent `json:"warnings"`
}

// SetAnswerRequest is the payload for saving an answer.
type SetAnswerRequest struct {
	Value string `json:"value" binding:"required,max=65536"`
}

// NavigateRequest is the payload for moving between questions. Target is
// "next", "previous", or a 0-based question index.
type NavigateRequest struct {
	Target string `json:"target" binding:"required,max=16"`
}
