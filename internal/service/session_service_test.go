package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/engine"
	"github.com/assessly/assessly-backend/internal/model"
)

type stubScorer struct {
	err error
}

func (s stubScorer) Score(_ context.Context, snap engine.Snapshot) (*model.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Result{SessionID: snap.SessionID, Score: 100, GradedAt: snap.SubmittedAt}, nil
}

func startStubController(t *testing.T, scorer engine.Scorer) *engine.Controller {
	t.Helper()
	ctrl, err := engine.Start(engine.Config{
		SessionID: uuid.New(),
		Kind:      model.TestKindAptitude,
		Questions: []model.Question{{
			ID:     uuid.New(),
			Prompt: "Hash table vs balanced BST?",
			Kind:   model.QuestionKindFreeText,
			Topic:  "Data Structures",
		}},
		Duration: time.Hour,
		Detector: engine.DetectorFunc(func(time.Time) (*model.IntegrityEvent, error) { return nil, nil }),
		Scorer:   scorer,
		Retry:    engine.RetryConfig{MaxAttempts: 1, BaseBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestReapHonorsGracePeriods(t *testing.T) {
	svc := &SessionService{
		cfg:  &config.Config{SessionReapAfter: time.Minute},
		log:  zerolog.Nop(),
		live: make(map[uuid.UUID]*liveSession),
	}

	submitted := startStubController(t, stubScorer{})
	_, err := submitted.Submit(context.Background())
	require.NoError(t, err)

	stuck := startStubController(t, stubScorer{err: errors.New("scoring backend down")})
	_, err = stuck.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, model.SessionStatusSubmitting, stuck.Status())

	running := startStubController(t, stubScorer{})

	submittedID, stuckID, runningID := uuid.New(), uuid.New(), uuid.New()
	svc.live[submittedID] = &liveSession{ctrl: submitted}
	svc.live[stuckID] = &liveSession{ctrl: stuck}
	svc.live[runningID] = &liveSession{ctrl: running}

	// The first pass only stamps the finish time.
	svc.reap()
	assert.Len(t, svc.live, 3)

	// Past the submitted grace, inside the stretched one for the stuck
	// handoff.
	svc.live[submittedID].finishedAt = time.Now().Add(-2 * time.Minute)
	svc.live[stuckID].finishedAt = time.Now().Add(-2 * time.Minute)
	svc.reap()
	assert.NotContains(t, svc.live, submittedID)
	assert.Contains(t, svc.live, stuckID)
	assert.Contains(t, svc.live, runningID)

	// Past the stretched grace the stuck controller is released too.
	svc.live[stuckID].finishedAt = time.Now().Add(-7 * time.Minute)
	svc.reap()
	assert.NotContains(t, svc.live, stuckID)
	assert.Contains(t, svc.live, runningID)
}
