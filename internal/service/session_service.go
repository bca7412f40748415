package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/engine"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/questionbank"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned for session IDs with no live controller.
var ErrSessionNotFound = errors.New("session not found")

// CreatedSession is the response to a successful session creation.
type CreatedSession struct {
	Session   model.AssessmentSession  `json:"session"`
	Questions []model.QuestionForTaker `json:"questions"`
	Token     string                   `json:"token"`
}

type liveSession struct {
	ctrl       *engine.Controller
	finishedAt time.Time // zero until the controller is observed SUBMITTED
}

// SessionService owns the registry of live session controllers. Every
// taker-facing operation resolves the controller here; terminal sessions
// are reaped after a grace period so results stay fetchable for a while.
type SessionService struct {
	cfg         *config.Config
	generator   *questionbank.Generator
	scorer      engine.Scorer
	recorder    engine.Recorder
	sessionRepo *repository.SessionRepository
	tokens      *TokenService
	rdb         *redis.Client
	log         zerolog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*liveSession
}

// NewSessionService creates a SessionService.
func NewSessionService(
	cfg *config.Config,
	generator *questionbank.Generator,
	scorer engine.Scorer,
	recorder engine.Recorder,
	sessionRepo *repository.SessionRepository,
	tokens *TokenService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		generator:   generator,
		scorer:      scorer,
		recorder:    recorder,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
		live:        make(map[uuid.UUID]*liveSession),
	}
}

// Create generates a question set, starts the engine, records the session
// row and issues the session token.
func (s *SessionService) Create(ctx context.Context, testCfg model.TestConfig) (*CreatedSession, error) {
	questions, err := s.generator.Generate(ctx, testCfg)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	sessionID := uuid.New()
	duration := time.Duration(testCfg.DurationMinutes) * time.Minute

	ctrl, err := engine.Start(engine.Config{
		SessionID:       sessionID,
		Kind:            testCfg.Kind,
		Questions:       questions,
		Duration:        duration,
		Detector:        engine.RandomDetector{Threshold: s.cfg.DetectorThreshold},
		MonitorInterval: s.cfg.MonitorInterval,
		Scorer:          s.scorer,
		Recorder:        s.recorder,
		Logger:          s.log,
	})
	if err != nil {
		return nil, err
	}

	session := model.AssessmentSession{
		ID:        sessionID,
		Kind:      testCfg.Kind,
		Status:    model.SessionStatusInProgress,
		Duration:  int(duration.Seconds()),
		StartedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, &session, questions); err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("create session row: %w", err)
	}

	token, err := s.tokens.IssueSessionToken(sessionID.String())
	if err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("issue token: %w", err)
	}

	// Cache the start time so state rebuilds skip Postgres on the hot path.
	startKey := config.CacheKey.SessionStartKey(sessionID.String())
	if err := s.rdb.Set(ctx, startKey, session.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("cache start time failed")
	}

	s.mu.Lock()
	s.live[sessionID] = &liveSession{ctrl: ctrl}
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("kind", string(testCfg.Kind)).
		Int("questions", len(questions)).
		Int("duration_seconds", session.Duration).
		Msg("session created")

	return &CreatedSession{
		Session:   session,
		Questions: ctrl.Questions(),
		Token:     token,
	}, nil
}

// controller resolves a live controller by ID.
func (s *SessionService) controller(id uuid.UUID) (*engine.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.ctrl, nil
}

// State returns the client-facing view of a live session.
func (s *SessionService) State(id uuid.UUID) (*model.SessionView, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	view := ctrl.State()
	return &view, nil
}

// Paper returns the question set without grading data.
func (s *SessionService) Paper(id uuid.UUID) ([]model.QuestionForTaker, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return ctrl.Questions(), nil
}

// Answer saves the taker's current response for one question index.
func (s *SessionService) Answer(id uuid.UUID, index int, value string) (model.Answer, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return model.Answer{}, err
	}
	return ctrl.Answer(index, value)
}

// Navigate moves the current question pointer. Target is "next",
// "previous", or a 0-based index.
func (s *SessionService) Navigate(id uuid.UUID, target string) (*model.SessionView, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}

	switch target {
	case "next":
		err = ctrl.Next()
	case "previous":
		err = ctrl.Previous()
	default:
		index, convErr := strconv.Atoi(target)
		if convErr != nil {
			return nil, &engine.ValidationError{Field: "target", Reason: "must be \"next\", \"previous\" or a question index"}
		}
		err = ctrl.GoTo(index)
	}
	if err != nil {
		return nil, err
	}

	view := ctrl.State()
	return &view, nil
}

// Submit finalizes the session and returns the graded result. Safe to call
// repeatedly and concurrently; every caller gets the same result.
func (s *SessionService) Submit(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return ctrl.Submit(ctx)
}

// LiveResult returns the in-memory result of a submitted live session.
func (s *SessionService) LiveResult(id uuid.UUID) (*model.Result, bool) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, false
	}
	return ctrl.Result()
}

// Remaining returns the remaining whole seconds for a live session.
func (s *SessionService) Remaining(id uuid.UUID) (int, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return 0, err
	}
	return ctrl.Remaining(), nil
}

// Warnings returns the integrity warnings accumulated so far.
func (s *SessionService) Warnings(id uuid.UUID) ([]model.IntegrityEvent, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return ctrl.Warnings(), nil
}

// Done exposes the controller's terminal channel for push transports.
func (s *SessionService) Done(id uuid.UUID) (<-chan struct{}, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return ctrl.Done(), nil
}

// StartReaper launches the background loop that releases terminal sessions
// once their results have had a grace period to be fetched. Persisted rows
// remain the durable record.
func (s *SessionService) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reap()
			}
		}
	}()
}

// stuckReapMultiplier stretches the grace period for sessions that left
// IN_PROGRESS but never reached SUBMITTED, so late submit retries still
// find their controller before it is released.
const stuckReapMultiplier = 6

func (s *SessionService) reap() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.live {
		status := entry.ctrl.Status()
		if status == model.SessionStatusInProgress {
			continue
		}
		if entry.finishedAt.IsZero() {
			entry.finishedAt = now
			continue
		}
		grace := s.cfg.SessionReapAfter
		if status != model.SessionStatusSubmitted {
			grace *= stuckReapMultiplier
		}
		if now.Sub(entry.finishedAt) < grace {
			continue
		}

		entry.ctrl.Close()
		delete(s.live, id)
		s.log.Info().
			Str("session_id", id.String()).
			Str("status", string(status)).
			Msg("terminal session reaped")
	}
}

// CloseAll stops every live controller. Called on shutdown.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.live {
		entry.ctrl.Close()
		delete(s.live, id)
	}
}
