package model

import "github.com/google/uuid"

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	QuestionKindChoice   QuestionKind = "choice"
	QuestionKindFreeText QuestionKind = "free-text"
	QuestionKindCode     QuestionKind = "code"
)

// Question is a single generated assessment question. Immutable once the
// session starts.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	Prompt        string       `json:"prompt"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options,omitempty"`       // choice only
	TemplateBody  string       `json:"template_body,omitempty"` // code only
	Language      string       `json:"language,omitempty"`      // code only
	Topic         string       `json:"topic"`
	CorrectOption string       `json:"correct_option,omitempty"` // persisted only, stripped by ForTaker
}

// QuestionForTaker is a question as delivered to the test taker. The
// correct option is stripped at the type level, not by json omission.
type QuestionForTaker struct {
	ID           uuid.UUID    `json:"id"`
	Prompt       string       `json:"prompt"`
	Kind         QuestionKind `json:"kind"`
	Options      []string     `json:"options,omitempty"`
	TemplateBody string       `json:"template_body,omitempty"`
	Language     string       `json:"language,omitempty"`
	Topic        string       `json:"topic"`
}

// ForTaker strips grading data from a question.
func (q Question) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:           q.ID,
		Prompt:       q.Prompt,
		Kind:         q.Kind,
		Options:      q.Options,
		TemplateBody: q.TemplateBody,
		Language:     q.Language,
		Topic:        q.Topic,
	}
}
