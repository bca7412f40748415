package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/assessly/assessly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ErrResultNotReady means the session exists but has not been graded yet.
var ErrResultNotReady = errors.New("result not ready")

// liveResultSource exposes the in-memory result of a still-live session.
type liveResultSource interface {
	LiveResult(id uuid.UUID) (*model.Result, bool)
}

// sessionStore is the slice of the session repository the result flow needs.
type sessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error)
	GetQuestions(ctx context.Context, id uuid.UUID) ([]model.Question, error)
}

// resultStore reads and annotates persisted results.
type resultStore interface {
	GetBySessionID(ctx context.Context, id uuid.UUID) (*model.Result, error)
	SetExplanation(ctx context.Context, id uuid.UUID, index int, text string) error
}

// questionExplainer produces an explanation for one answered question.
type questionExplainer interface {
	Explain(ctx context.Context, q model.Question, answer string) (string, error)
}

// ResultService serves graded results and orchestrates per-question
// explanations. Live sessions answer from memory; everything else comes
// from the persisted rows.
type ResultService struct {
	sessions    liveResultSource
	sessionRepo sessionStore
	resultRepo  resultStore
	explainer   questionExplainer
	log         zerolog.Logger
}

// NewResultService creates a ResultService.
func NewResultService(
	sessions liveResultSource,
	sessionRepo sessionStore,
	resultRepo resultStore,
	explainer questionExplainer,
	log zerolog.Logger,
) *ResultService {
	return &ResultService{
		sessions:    sessions,
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		explainer:   explainer,
		log:         log.With().Str("component", "result_service").Logger(),
	}
}

// Get returns the graded result for a session, preferring the in-memory
// copy of a live session over the persisted row.
func (s *ResultService) Get(ctx context.Context, sessionID uuid.UUID) (*model.Result, error) {
	if result, ok := s.sessions.LiveResult(sessionID); ok {
		return result, nil
	}

	result, err := s.resultRepo.GetBySessionID(ctx, sessionID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch result: %w", err)
	}

	// No result row. Distinguish "still running" from "never existed".
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return nil, ErrResultNotReady
}

// Explain returns an explanation for one question of a graded session,
// using the answer the taker gave. Generated explanations are stored on
// the result row, so repeat requests come back without another upstream
// call.
func (s *ResultService) Explain(ctx context.Context, sessionID uuid.UUID, index int) (string, error) {
	result, live := s.sessions.LiveResult(sessionID)
	if !live {
		var err error
		result, err = s.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
	}
	if index < 0 || index >= len(result.Questions) {
		return "", fmt.Errorf("question index %d out of range", index)
	}
	if cached := result.Questions[index].Explanation; cached != "" {
		return cached, nil
	}
	if live {
		// The in-memory copy predates any stored explanations, so check
		// the persisted row before going upstream again.
		persisted, err := s.resultRepo.GetBySessionID(ctx, sessionID)
		if err == nil && index < len(persisted.Questions) {
			if cached := persisted.Questions[index].Explanation; cached != "" {
				return cached, nil
			}
		}
	}

	questions, err := s.sessionRepo.GetQuestions(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("fetch questions: %w", err)
	}
	if index >= len(questions) {
		return "", fmt.Errorf("question index %d out of range", index)
	}

	text, err := s.explainer.Explain(ctx, questions[index], result.Questions[index].Answer)
	if err != nil {
		return "", err
	}
	if err := s.resultRepo.SetExplanation(ctx, sessionID, index, text); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Int("index", index).
			Msg("failed to store explanation")
	}
	return text, nil
}
