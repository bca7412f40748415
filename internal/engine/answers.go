package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/assessly/assessly-backend/internal/model"
)

// AnswerStore maps question index to the taker's current response. The
// last write for an index wins; no history is kept. Not safe for
// concurrent use on its own; the controller serializes access.
type AnswerStore struct {
	answers map[int]model.Answer
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[int]model.Answer)}
}

// Set overwrites the answer for index.
func (s *AnswerStore) Set(index int, questionID uuid.UUID, value string, now time.Time) model.Answer {
	a := model.Answer{
		QuestionID:     questionID,
		Value:          value,
		LastModifiedAt: now,
	}
	s.answers[index] = a
	return a
}

// Get returns the current answer for index, if set.
func (s *AnswerStore) Get(index int) (model.Answer, bool) {
	a, ok := s.answers[index]
	return a, ok
}

// Len returns the number of answered indexes.
func (s *AnswerStore) Len() int { return len(s.answers) }

// All returns a copy of the answer map, safe to hand off.
func (s *AnswerStore) All() map[int]model.Answer {
	out := make(map[int]model.Answer, len(s.answers))
	for i, a := range s.answers {
		out[i] = a
	}
	return out
}
