package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assessly/assessly-backend/internal/model"
)

// DefaultMonitorInterval is how often the integrity monitor samples the
// attention signal.
const DefaultMonitorInterval = 15 * time.Second

// Detector decides, for a single monitor tick, whether to raise an
// integrity event. Implementations returning an error have the tick
// skipped and logged; errors never reach the taker.
type Detector interface {
	Detect(now time.Time) (*model.IntegrityEvent, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(now time.Time) (*model.IntegrityEvent, error)

func (f DetectorFunc) Detect(now time.Time) (*model.IntegrityEvent, error) { return f(now) }

// RandomDetector stands in for a real attention/focus detector: each tick
// samples a uniform float and raises an attention-loss event above the
// threshold.
type RandomDetector struct {
	Threshold float64
}

func (d RandomDetector) Detect(now time.Time) (*model.IntegrityEvent, error) {
	if rand.Float64() < d.Threshold {
		return nil, nil
	}
	return &model.IntegrityEvent{
		Timestamp: now,
		Kind:      model.IntegrityKindAttentionLoss,
		Message:   "Focus detected away from the test window",
	}, nil
}

// Monitor periodically runs a Detector for the lifetime of an in-progress
// session and emits the resulting events. Emission is advisory: the
// monitor never blocks taker operations and never fails the session.
type Monitor struct {
	clock    Clock
	interval time.Duration
	detector Detector
	log      zerolog.Logger

	events   chan model.IntegrityEvent
	quit     chan struct{}
	stopOnce sync.Once
}

// NewMonitor starts the monitor loop.
func NewMonitor(clock Clock, interval time.Duration, detector Detector, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m := &Monitor{
		clock:    clock,
		interval: interval,
		detector: detector,
		log:      log.With().Str("component", "integrity_monitor").Logger(),
		events:   make(chan model.IntegrityEvent, 16),
		quit:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case now := <-ticker.C():
			ev, err := m.detector.Detect(now)
			if err != nil {
				// Detection failures are swallowed: log and skip the tick.
				m.log.Warn().Err(err).Msg("detector error, tick skipped")
				continue
			}
			if ev == nil {
				continue
			}
			select {
			case m.events <- *ev:
			case <-m.quit:
				return
			}
		}
	}
}

// Events is the stream of emitted integrity events, in emission order.
func (m *Monitor) Events() <-chan model.IntegrityEvent { return m.events }

// Stop halts sampling and releases the ticker. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
}
