// Package questionbank produces the question set for a new assessment
// session by prompting the configured LLM and validating its output.
package questionbank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/assessly/assessly-backend/internal/llm"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const systemPrompt = `You are an assessment author. You produce technical screening questions as strict JSON with no surrounding prose. Respond with a JSON array only.`

// Generator builds question sets from a test configuration.
type Generator struct {
	client *llm.Client
	retry  llm.RetryConfig
	log    zerolog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(client *llm.Client, log zerolog.Logger) *Generator {
	return &Generator{
		client: client,
		retry:  llm.DefaultRetryConfig,
		log:    log.With().Str("component", "questionbank").Logger(),
	}
}

// generatedQuestion is the shape we ask the model to emit.
type generatedQuestion struct {
	Prompt        string   `json:"prompt"`
	Kind          string   `json:"kind"`
	Options       []string `json:"options,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`
	TemplateBody  string   `json:"template_body,omitempty"`
	Language      string   `json:"language,omitempty"`
	Topic         string   `json:"topic"`
}

// Generate produces cfg.QuestionCount validated questions. Transient provider
// failures are retried with backoff; a structurally invalid payload fails
// the call.
func (g *Generator) Generate(ctx context.Context, cfg model.TestConfig) ([]model.Question, error) {
	prompt := buildPrompt(cfg)

	raw, err := llm.Retry(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.client.Complete(ctx, systemPrompt, prompt, 0.7)
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		g.log.Error().Err(err).Str("kind", string(cfg.Kind)).Msg("question payload rejected")
		return nil, err
	}
	if len(questions) != cfg.QuestionCount {
		return nil, fmt.Errorf("expected %d questions, model returned %d", cfg.QuestionCount, len(questions))
	}

	g.log.Info().
		Int("count", len(questions)).
		Str("kind", string(cfg.Kind)).
		Int("difficulty", cfg.DifficultyLevel).
		Msg("question set generated")

	return questions, nil
}

func buildPrompt(cfg model.TestConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d screening questions for a %s assessment at difficulty %d on a 0-100 scale.\n\n",
		cfg.QuestionCount, cfg.Kind, cfg.DifficultyLevel)

	switch cfg.Kind {
	case model.TestKindAptitude:
		b.WriteString("Every question must be kind \"choice\" with exactly 4 options.\n")
	case model.TestKindCoding:
		b.WriteString("Mix kinds \"choice\" (4 options), \"free-text\", and \"code\". Code questions include a starter template_body and a language.\n")
	case model.TestKindMixed:
		b.WriteString("Mix aptitude and coding material across kinds \"choice\" (4 options), \"free-text\", and \"code\".\n")
	}

	if cfg.Adaptive {
		b.WriteString("Ramp the difficulty: start easier than the target and finish harder.\n")
	}

	b.WriteString(`
Each array element must have:
- "prompt": the question text
- "kind": one of "choice", "free-text", "code"
- "options": array of answer strings (choice only)
- "correct_option": zero-based index of the right option (choice only)
- "template_body": starter code (code only)
- "language": programming language (code only)
- "topic": a short topic label for score breakdowns

Return the JSON array only.`)
	return b.String()
}

func parseQuestions(raw string) ([]model.Question, error) {
	raw = stripFences(raw)

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &generated); err != nil {
		return nil, fmt.Errorf("parse question payload: %w", err)
	}

	questions := make([]model.Question, 0, len(generated))
	for i, gq := range generated {
		q, err := toQuestion(gq)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func toQuestion(gq generatedQuestion) (model.Question, error) {
	kind := model.QuestionKind(gq.Kind)

	if strings.TrimSpace(gq.Prompt) == "" {
		return model.Question{}, fmt.Errorf("empty prompt")
	}
	if strings.TrimSpace(gq.Topic) == "" {
		return model.Question{}, fmt.Errorf("empty topic")
	}

	switch kind {
	case model.QuestionKindChoice:
		if len(gq.Options) < 2 {
			return model.Question{}, fmt.Errorf("choice question needs at least 2 options, got %d", len(gq.Options))
		}
		if gq.CorrectOption == nil || *gq.CorrectOption < 0 || *gq.CorrectOption >= len(gq.Options) {
			return model.Question{}, fmt.Errorf("correct_option out of range")
		}
	case model.QuestionKindFreeText:
		// No structural requirements beyond the prompt.
	case model.QuestionKindCode:
		if strings.TrimSpace(gq.Language) == "" {
			return model.Question{}, fmt.Errorf("code question missing language")
		}
	default:
		return model.Question{}, fmt.Errorf("unknown kind %q", gq.Kind)
	}

	q := model.Question{
		ID:           uuid.New(),
		Prompt:       gq.Prompt,
		Kind:         kind,
		Options:      gq.Options,
		TemplateBody: gq.TemplateBody,
		Language:     gq.Language,
		Topic:        gq.Topic,
	}
	if kind == model.QuestionKindChoice {
		q.CorrectOption = gq.Options[*gq.CorrectOption]
	}
	return q, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
