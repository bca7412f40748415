// Package explain produces plain-language explanations for answered
// questions after a session has been graded.
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/assessly/assessly-backend/internal/llm"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/rs/zerolog"
)

const systemPrompt = `You explain assessment questions to candidates reviewing their results. Be concise: two to four sentences, no headings, no markdown.`

// Service generates explanations through the configured LLM. A missing
// credential surfaces as llm.ErrMissingCredential and is non-fatal for the
// caller; results render without explanations.
type Service struct {
	client *llm.Client
	retry  llm.RetryConfig
	log    zerolog.Logger
}

// NewService creates an explanation Service.
func NewService(client *llm.Client, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		retry:  llm.DefaultRetryConfig,
		log:    log.With().Str("component", "explain").Logger(),
	}
}

// Explain returns an explanation of the question and, where one exists, why
// the given answer is right or wrong.
func (s *Service) Explain(ctx context.Context, q model.Question, answer string) (string, error) {
	prompt := buildPrompt(q, answer)

	text, err := llm.Retry(ctx, s.retry, func(ctx context.Context) (string, error) {
		return s.client.Complete(ctx, systemPrompt, prompt, 0.4)
	})
	if err != nil {
		return "", fmt.Errorf("explain question: %w", err)
	}

	return strings.TrimSpace(text), nil
}

func buildPrompt(q model.Question, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question (%s, topic %q):\n%s\n", q.Kind, q.Topic, q.Prompt)

	if q.Kind == model.QuestionKindChoice {
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		fmt.Fprintf(&b, "\nCorrect option: %s\n", q.CorrectOption)
	}

	if answer == "" {
		b.WriteString("\nThe candidate left this question unanswered. Explain the expected answer.")
	} else {
		fmt.Fprintf(&b, "\nThe candidate answered: %s\nExplain whether this is right and why.", answer)
	}
	return b.String()
}
