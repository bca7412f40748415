// Package llm provides a thin client over the Groq OpenAI-compatible chat
// API. The credential and model name live in the preference store so the
// operator can change them without a restart.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/prefs"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Common client errors.
var (
	// ErrMissingCredential means no API key has been configured yet.
	ErrMissingCredential = errors.New("no API credential configured")
	// ErrEmptyResponse means the provider returned no choices.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ErrUnavailable wraps transient provider failures (5xx, rate limits,
// network errors).
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string { return fmt.Sprintf("provider unavailable: %v", e.Err) }
func (e *ErrUnavailable) Unwrap() error { return e.Err }

// Client calls the Groq chat completion endpoint.
type Client struct {
	cfg   *config.Config
	store *prefs.Store
	log   zerolog.Logger
}

// NewClient creates an llm Client backed by the preference store.
func NewClient(cfg *config.Config, store *prefs.Store, log zerolog.Logger) *Client {
	return &Client{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "llm").Logger(),
	}
}

// Complete sends a system+user prompt pair and returns the raw text of the
// first choice. Returns ErrMissingCredential when no key is stored.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	apiKey, err := c.store.Get(ctx, model.SettingGroqAPIKey)
	if err != nil {
		if errors.Is(err, prefs.ErrNotSet) {
			return "", ErrMissingCredential
		}
		return "", fmt.Errorf("load credential: %w", err)
	}

	modelName, err := c.store.GetOrDefault(ctx, model.SettingGroqModel, c.cfg.DefaultModel)
	if err != nil {
		return "", fmt.Errorf("load model preference: %w", err)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = c.cfg.GroqBaseURL
	client := openai.NewClientWithConfig(clientCfg)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.log.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("credential rejected: %w", err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &ErrUnavailable{Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &ErrUnavailable{Err: err}
		}
		return err
	}
	return &ErrUnavailable{Err: err}
}
