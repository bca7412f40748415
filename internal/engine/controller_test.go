package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assessly/assessly-backend/internal/model"
)

// fakeScorer counts invocations and can fail the first N calls.
type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	failures int
	delay    time.Duration
	lastSnap Snapshot
}

func (s *fakeScorer) Score(_ context.Context, snap Snapshot) (*model.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.lastSnap = snap
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if n <= s.failures {
		return nil, errors.New("scoring backend down")
	}
	return &model.Result{
		SessionID: snap.SessionID,
		Score:     80,
		GradedAt:  snap.SubmittedAt,
	}, nil
}

func (s *fakeScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeScorer) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnap
}

// recordingSink captures Recorder notifications.
type recordingSink struct {
	mu       sync.Mutex
	answers  []int
	warnings []model.IntegrityEvent
}

func (r *recordingSink) RecordAnswer(_ uuid.UUID, index int, _ model.Answer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, index)
}

func (r *recordingSink) RecordWarning(_ uuid.UUID, ev model.IntegrityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, ev)
}

func fiveQuestions() []model.Question {
	return []model.Question{
		{ID: uuid.New(), Prompt: "Average-case complexity of quicksort?", Kind: model.QuestionKindChoice,
			Options: []string{"O(n)", "O(n log n)", "O(n^2)", "O(log n)"}, CorrectOption: "O(n log n)", Topic: "Algorithm Complexity"},
		{ID: uuid.New(), Prompt: "Explain Dijkstra's algorithm.", Kind: model.QuestionKindFreeText, Topic: "Graph Algorithms"},
		{ID: uuid.New(), Prompt: "Implement longest common subsequence.", Kind: model.QuestionKindCode,
			TemplateBody: "func lcs(a, b string) int {\n\t// Your code here\n}", Language: "go", Topic: "Dynamic Programming"},
		{ID: uuid.New(), Prompt: "Which does NOT balance a BST?", Kind: model.QuestionKindChoice,
			Options: []string{"AVL rotation", "Red-Black insertion", "Heap insertion", "B-tree splitting"}, CorrectOption: "Heap insertion", Topic: "Data Structures"},
		{ID: uuid.New(), Prompt: "Hash table vs balanced BST?", Kind: model.QuestionKindFreeText, Topic: "Data Structures"},
	}
}

func neverDetect(time.Time) (*model.IntegrityEvent, error) { return nil, nil }

func startTestController(t *testing.T, fc *fakeClock, scorer Scorer, opts ...func(*Config)) *Controller {
	t.Helper()
	cfg := Config{
		SessionID:       uuid.New(),
		Kind:            model.TestKindMixed,
		Questions:       fiveQuestions(),
		Duration:        1800 * time.Second,
		Clock:           fc,
		Detector:        DetectorFunc(neverDetect),
		MonitorInterval: 15 * time.Second,
		Scorer:          scorer,
		Retry:           RetryConfig{MaxAttempts: 1, BaseBackoff: time.Millisecond},
		Logger:          zerolog.Nop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	c, err := Start(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	// Countdown and monitor tickers must be registered before tests advance
	// the fake clock.
	waitForTickers(t, fc, 2)
	return c
}

func TestStartRejectsBadConfig(t *testing.T) {
	var ve *ValidationError

	_, err := Start(Config{Questions: nil, Duration: time.Minute, Scorer: &fakeScorer{}})
	require.ErrorAs(t, err, &ve)

	_, err = Start(Config{Questions: fiveQuestions(), Duration: 0, Scorer: &fakeScorer{}})
	require.ErrorAs(t, err, &ve)
}

func TestAnswerLastWriteWins(t *testing.T) {
	fc := newFakeClock()
	c := startTestController(t, fc, &fakeScorer{})

	_, err := c.Answer(1, "greedy shortest path")
	require.NoError(t, err)
	_, err = c.Answer(1, "priority-queue relaxation")
	require.NoError(t, err)

	a, ok := c.GetAnswer(1)
	require.True(t, ok)
	assert.Equal(t, "priority-queue relaxation", a.Value)
}

func TestAnswerValidation(t *testing.T) {
	fc := newFakeClock()
	c := startTestController(t, fc, &fakeScorer{})
	var ve *ValidationError

	// Choice answers must match one of the question's options.
	_, err := c.Answer(0, "O(n!)")
	require.ErrorAs(t, err, &ve)
	_, ok := c.GetAnswer(0)
	assert.False(t, ok)

	_, err = c.Answer(0, "O(n log n)")
	require.NoError(t, err)

	// Out-of-range index.
	_, err = c.Answer(9, "x")
	require.ErrorAs(t, err, &ve)
}

func TestNavigateOutOfRangeRejected(t *testing.T) {
	fc := newFakeClock()
	c := startTestController(t, fc, &fakeScorer{})

	require.NoError(t, c.GoTo(4))

	var ve *ValidationError
	err := c.GoTo(7)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 4, c.State().CurrentIndex)
}

func TestSubmitIdempotent(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{}
	c := startTestController(t, fc, scorer)

	_, err := c.Answer(0, "O(n log n)")
	require.NoError(t, err)

	first, err := c.Submit(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := c.Submit(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, again)
	}

	assert.Equal(t, 1, scorer.callCount())
	assert.Equal(t, model.SessionStatusSubmitted, c.Status())
}

func TestConcurrentExpiryAndSubmitSingleHandoff(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{delay: 10 * time.Millisecond}
	c := startTestController(t, fc, scorer)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Fire the countdown while the explicit submits race it.
	fc.Advance(1800 * time.Second)
	wg.Wait()

	require.Eventually(t, func() bool {
		return c.Status() == model.SessionStatusSubmitted
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, scorer.callCount())
}

func TestMutationsRejectedAfterSubmit(t *testing.T) {
	fc := newFakeClock()
	c := startTestController(t, fc, &fakeScorer{})

	_, err := c.Answer(0, "O(n log n)")
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)

	before := c.State()

	_, err = c.Answer(1, "late answer")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, c.GoTo(2), ErrSessionClosed)
	assert.ErrorIs(t, c.Next(), ErrSessionClosed)
	assert.ErrorIs(t, c.Previous(), ErrSessionClosed)

	after := c.State()
	assert.Equal(t, before.CurrentIndex, after.CurrentIndex)
	assert.Equal(t, before.Answers, after.Answers)
}

func TestWarningsPreservedInOrder(t *testing.T) {
	fc := newFakeClock()
	sink := &recordingSink{}
	c := startTestController(t, fc, &fakeScorer{}, func(cfg *Config) {
		cfg.Detector = DetectorFunc(alwaysDetect)
		cfg.Recorder = sink
	})

	fc.Advance(45 * time.Second)

	require.Eventually(t, func() bool { return len(c.Warnings()) == 3 },
		time.Second, time.Millisecond)

	warnings := c.Warnings()
	for i := 1; i < len(warnings); i++ {
		assert.False(t, warnings[i].Timestamp.Before(warnings[i-1].Timestamp))
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.warnings, 3)
}

func TestScenarioExplicitPartialSubmit(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{}
	c := startTestController(t, fc, scorer)

	_, err := c.Answer(0, "O(n log n)")
	require.NoError(t, err)
	_, err = c.Answer(1, "greedy shortest-path relaxation")
	require.NoError(t, err)
	_, err = c.Answer(3, "Heap insertion")
	require.NoError(t, err)

	fc.Advance(600 * time.Second)
	assert.Equal(t, 1200, c.Remaining())

	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusSubmitted, c.Status())

	snap := scorer.snapshot()
	assert.Len(t, snap.Answers, 3)
	_, has2 := snap.Answers[2]
	_, has4 := snap.Answers[4]
	assert.False(t, has2)
	assert.False(t, has4)
	assert.False(t, snap.Expired)
}

func TestScenarioAutoSubmitOnExpiry(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{}
	c := startTestController(t, fc, scorer)

	_, err := c.Answer(0, "O(n log n)")
	require.NoError(t, err)

	fc.Advance(1800 * time.Second)

	require.Eventually(t, func() bool {
		return c.Status() == model.SessionStatusSubmitted
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, scorer.callCount())
	snap := scorer.snapshot()
	assert.True(t, snap.Expired)
	assert.Len(t, snap.Answers, 1)

	res, ok := c.Result()
	require.True(t, ok)
	assert.Equal(t, snap.SessionID, res.SessionID)
}

func TestFailedHandoffStaysSubmittingAndRetries(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{failures: 1}
	c := startTestController(t, fc, scorer)

	_, err := c.Submit(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.SessionStatusSubmitting, c.Status())

	// Mutations stay rejected while SUBMITTING.
	_, err = c.Answer(0, "O(n log n)")
	assert.ErrorIs(t, err, ErrSessionClosed)

	// A later submit retries the handoff only.
	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, model.SessionStatusSubmitted, c.Status())
	assert.Equal(t, 2, scorer.callCount())
}

func TestRetriedHandoffReplaysFirstSnapshot(t *testing.T) {
	fc := newFakeClock()
	scorer := &fakeScorer{failures: 1}
	c := startTestController(t, fc, scorer)

	_, err := c.Answer(0, "O(n log n)")
	require.NoError(t, err)

	_, err = c.Submit(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	first := scorer.snapshot()

	// Warnings stay appendable while SUBMITTING, but the scoring payload
	// was taken when submission began.
	c.OnIntegrityEvent(model.IntegrityEvent{
		Timestamp: time.Now(),
		Kind:      model.IntegrityKindAttentionLoss,
		Message:   "Focus detected away from the test window",
	})
	require.Len(t, c.Warnings(), 1)

	_, err = c.Submit(context.Background())
	require.NoError(t, err)

	second := scorer.snapshot()
	assert.Equal(t, first.SubmittedAt, second.SubmittedAt)
	assert.Equal(t, len(first.Answers), len(second.Answers))
	assert.Empty(t, second.Warnings)

	// Once SUBMITTED, further events are dropped entirely.
	c.OnIntegrityEvent(model.IntegrityEvent{
		Timestamp: time.Now(),
		Kind:      model.IntegrityKindAttentionLoss,
		Message:   "Focus detected away from the test window",
	})
	assert.Len(t, c.Warnings(), 1)
}

func TestRemainingNonIncreasing(t *testing.T) {
	fc := newFakeClock()
	c := startTestController(t, fc, &fakeScorer{})

	prev := c.Remaining()
	for i := 0; i < 10; i++ {
		fc.Advance(7 * time.Second)
		cur := c.Remaining()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestRecorderReceivesAnswers(t *testing.T) {
	fc := newFakeClock()
	sink := &recordingSink{}
	c := startTestController(t, fc, &fakeScorer{}, func(cfg *Config) {
		cfg.Recorder = sink
	})

	_, err := c.Answer(1, "a")
	require.NoError(t, err)
	_, err = c.Answer(2, "b")
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []int{1, 2}, sink.answers)
}
