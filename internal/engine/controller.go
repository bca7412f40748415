package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assessly/assessly-backend/internal/model"
)

// autoSubmitTimeout bounds the scoring handoff when the countdown, not the
// taker, triggers submission.
const autoSubmitTimeout = 30 * time.Second

// Config assembles a session controller.
type Config struct {
	SessionID uuid.UUID
	Kind      model.TestKind
	Questions []model.Question
	Duration  time.Duration

	Clock           Clock
	Detector        Detector
	MonitorInterval time.Duration
	Scorer          Scorer
	Recorder        Recorder
	Retry           RetryConfig
	Logger          zerolog.Logger
}

// Controller owns one assessment session: it is the single mutation point
// for answers, warnings, navigation and status. Three timelines converge
// here (taker operations, countdown expiry, integrity sampling) and
// all serialize through the controller's lock. Submission is one idempotent
// gate regardless of which timeline triggers it.
type Controller struct {
	id        uuid.UUID
	kind      model.TestKind
	questions []model.Question
	duration  time.Duration

	clock    Clock
	scorer   Scorer
	recorder Recorder
	retry    RetryConfig
	log      zerolog.Logger

	countdown *Countdown
	monitor   *Monitor

	mu       sync.Mutex
	status   model.SessionStatus
	store    *AnswerStore
	nav      *Navigator
	warnings []model.IntegrityEvent

	// Submission gate. inFlight marks a handoff in progress; attemptDone is
	// closed when that attempt finishes (success or failure) so concurrent
	// submitters can re-examine the status. done is closed exactly once, on
	// the transition to SUBMITTED.
	inFlight    bool
	attemptDone chan struct{}
	done        chan struct{}
	snap        *Snapshot
	result      *model.Result

	closeOnce sync.Once
	quit      chan struct{}
}

// Start validates the configuration and launches the session: the
// countdown and the integrity monitor begin immediately, started once here
// and stopped exactly once at termination.
func Start(cfg Config) (*Controller, error) {
	if len(cfg.Questions) == 0 {
		return nil, &ValidationError{Field: "questions", Reason: "at least one question is required"}
	}
	if cfg.Duration <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if cfg.Scorer == nil {
		return nil, &ValidationError{Field: "scorer", Reason: "is required"}
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Detector == nil {
		cfg.Detector = RandomDetector{Threshold: 0.95}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	log := cfg.Logger.With().
		Str("component", "session_controller").
		Str("session_id", cfg.SessionID.String()).
		Logger()

	c := &Controller{
		id:        cfg.SessionID,
		kind:      cfg.Kind,
		questions: cfg.Questions,
		duration:  cfg.Duration,
		clock:     cfg.Clock,
		scorer:    cfg.Scorer,
		recorder:  cfg.Recorder,
		retry:     cfg.Retry,
		log:       log,
		status:    model.SessionStatusInProgress,
		store:     NewAnswerStore(),
		nav:       NewNavigator(len(cfg.Questions)),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
	c.countdown = NewCountdown(cfg.Clock, cfg.Duration)
	c.monitor = NewMonitor(cfg.Clock, cfg.MonitorInterval, cfg.Detector, log)

	go c.run()
	return c, nil
}

// run consumes the countdown and monitor streams until the session is
// terminal or closed.
func (c *Controller) run() {
	for {
		select {
		case <-c.quit:
			return
		case <-c.done:
			return
		case ev := <-c.monitor.Events():
			c.OnIntegrityEvent(ev)
		case <-c.countdown.Expired():
			c.onExpiry()
		}
	}
}

// onExpiry is the only transition the controller initiates itself: it
// marks the session EXPIRED and converges on the same idempotent submit
// path the taker uses.
func (c *Controller) onExpiry() {
	c.mu.Lock()
	if c.status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return
	}
	c.status = model.SessionStatusExpired
	c.mu.Unlock()

	c.log.Info().Msg("countdown expired, auto-submitting")

	ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
	defer cancel()
	if _, err := c.Submit(ctx); err != nil {
		c.log.Error().Err(err).Msg("auto-submit failed, session remains SUBMITTING")
	}
}

// Answer records the taker's response for a question index. Valid only
// while IN_PROGRESS; the last write for an index wins.
func (c *Controller) Answer(index int, value string) (model.Answer, error) {
	c.mu.Lock()
	if c.status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return model.Answer{}, fmt.Errorf("%w: status is %s", ErrSessionClosed, c.status)
	}
	if index < 0 || index >= len(c.questions) {
		c.mu.Unlock()
		return model.Answer{}, &ValidationError{
			Field:  "index",
			Reason: fmt.Sprintf("must be in [0, %d)", len(c.questions)),
		}
	}
	q := c.questions[index]
	if q.Kind == model.QuestionKindChoice && !slices.Contains(q.Options, value) {
		c.mu.Unlock()
		return model.Answer{}, &ValidationError{
			Field:  "value",
			Reason: "must be one of the question's options",
		}
	}
	ans := c.store.Set(index, q.ID, value, c.clock.Now())
	c.mu.Unlock()

	c.recorder.RecordAnswer(c.id, index, ans)
	return ans, nil
}

// GetAnswer returns the current answer for index, if any.
func (c *Controller) GetAnswer(index int) (model.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(index)
}

// GoTo jumps to a question index. Guarded by IN_PROGRESS; out-of-range
// indexes are rejected, not clamped.
func (c *Controller) GoTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.SessionStatusInProgress {
		return fmt.Errorf("%w: status is %s", ErrSessionClosed, c.status)
	}
	return c.nav.GoTo(index)
}

// Next moves forward one question; a no-op at the last question.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.SessionStatusInProgress {
		return fmt.Errorf("%w: status is %s", ErrSessionClosed, c.status)
	}
	c.nav.Next()
	return nil
}

// Previous moves back one question; a no-op at the first question.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.SessionStatusInProgress {
		return fmt.Errorf("%w: status is %s", ErrSessionClosed, c.status)
	}
	c.nav.Previous()
	return nil
}

// OnIntegrityEvent appends an advisory warning. Warnings stay appendable
// after submission begins, up to the terminal state; events arriving after
// SUBMITTED are dropped.
func (c *Controller) OnIntegrityEvent(ev model.IntegrityEvent) {
	c.mu.Lock()
	if c.status == model.SessionStatusSubmitted {
		c.mu.Unlock()
		return
	}
	c.warnings = append(c.warnings, ev)
	c.mu.Unlock()

	c.log.Warn().Str("kind", ev.Kind).Msg("integrity warning recorded")
	c.recorder.RecordWarning(c.id, ev)
}

// Submit drives the session to its terminal state. Explicit taker submits
// and countdown expiry converge here; the status gate guarantees exactly
// one scoring handoff. Calling Submit on a SUBMITTED session returns the
// stored result. If a prior handoff failed the session stays SUBMITTING
// and Submit retries the handoff only; the scoring payload is pinned at
// the first attempt, so retries replay the same snapshot, and the scorer
// is idempotent per session ID.
func (c *Controller) Submit(ctx context.Context) (*model.Result, error) {
	c.mu.Lock()
	for {
		switch {
		case c.status == model.SessionStatusSubmitted:
			res := c.result
			c.mu.Unlock()
			return res, nil

		case c.inFlight:
			// Another caller is mid-handoff. Wait for that attempt, then
			// re-examine the status: on success we return the same terminal
			// outcome, on failure we take over the retry.
			attempt := c.attemptDone
			c.mu.Unlock()
			select {
			case <-attempt:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.mu.Lock()

		default:
			wasExpired := c.status == model.SessionStatusExpired
			c.status = model.SessionStatusSubmitting
			c.inFlight = true
			c.attemptDone = make(chan struct{})
			// Stop both producers before the external handoff; a running
			// timer past session end is a leak. Stops are idempotent.
			c.countdown.Stop()
			c.monitor.Stop()
			if c.snap == nil {
				snap := c.snapshotLocked()
				snap.Expired = snap.Expired || wasExpired
				c.snap = &snap
			}
			snap := *c.snap
			c.mu.Unlock()

			res, err := c.handoff(ctx, snap)

			c.mu.Lock()
			c.inFlight = false
			close(c.attemptDone)
			if err != nil {
				c.mu.Unlock()
				return nil, err
			}
			c.status = model.SessionStatusSubmitted
			c.result = res
			close(c.done)
			c.mu.Unlock()

			c.log.Info().Float64("score", res.Score).Msg("session submitted")
			return res, nil
		}
	}
}

// handoff calls the scorer with bounded jittered exponential backoff.
func (c *Controller) handoff(ctx context.Context, snap Snapshot) (*model.Result, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retry.BaseBackoff << (attempt - 1)
			backoff += time.Duration(rand.Int64N(int64(backoff)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := c.scorer.Score(ctx, snap)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("scoring handoff failed")
	}
	return nil, &UpstreamError{Op: "scoring", Err: lastErr}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:   c.id,
		Kind:        c.kind,
		Questions:   c.questions,
		Answers:     c.store.All(),
		Warnings:    slices.Clone(c.warnings),
		StartedAt:   c.countdown.StartedAt(),
		SubmittedAt: c.clock.Now(),
		Expired:     c.countdown.Remaining() == 0,
	}
}

// State builds the client-facing view of live session state.
func (c *Controller) State() model.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.SessionView{
		ID:               c.id,
		Status:           c.status,
		CurrentIndex:     c.nav.Current(),
		QuestionCount:    len(c.questions),
		RemainingSeconds: c.countdown.Remaining(),
		Answers:          c.store.All(),
		Warnings:         slices.Clone(c.warnings),
	}
}

// Status returns the current session status.
func (c *Controller) Status() model.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Questions returns the question set stripped of grading data.
func (c *Controller) Questions() []model.QuestionForTaker {
	out := make([]model.QuestionForTaker, len(c.questions))
	for i, q := range c.questions {
		out[i] = q.ForTaker()
	}
	return out
}

// Warnings returns a copy of the accumulated integrity events.
func (c *Controller) Warnings() []model.IntegrityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.warnings)
}

// Result returns the terminal result once the session is SUBMITTED.
func (c *Controller) Result() (*model.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.result != nil
}

// Done is closed when the session reaches SUBMITTED.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Remaining returns the countdown's remaining whole seconds.
func (c *Controller) Remaining() int { return c.countdown.Remaining() }

// Close releases the countdown, the monitor and the event loop without
// submitting. Used when an abandoned session is reaped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.countdown.Stop()
		c.monitor.Stop()
		close(c.quit)
	})
}
