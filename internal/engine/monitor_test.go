package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/assessly/assessly-backend/internal/model"
)

func alwaysDetect(now time.Time) (*model.IntegrityEvent, error) {
	return &model.IntegrityEvent{
		Timestamp: now,
		Kind:      model.IntegrityKindAttentionLoss,
		Message:   "Focus detected away from the test window",
	}, nil
}

func TestMonitorEmitsPerTick(t *testing.T) {
	fc := newFakeClock()
	m := NewMonitor(fc, 15*time.Second, DetectorFunc(alwaysDetect), zerolog.Nop())
	defer m.Stop()
	waitForTickers(t, fc, 1)

	fc.Advance(45 * time.Second)

	var got []model.IntegrityEvent
	for i := 0; i < 3; i++ {
		select {
		case ev := <-m.Events():
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("expected 3 events, got %d", len(got))
		}
	}

	// Events arrive in emission order.
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
	}
}

func TestMonitorSwallowsDetectorErrors(t *testing.T) {
	fc := newFakeClock()
	calls := 0
	det := DetectorFunc(func(now time.Time) (*model.IntegrityEvent, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("sensor offline")
		}
		return alwaysDetect(now)
	})
	m := NewMonitor(fc, 15*time.Second, det, zerolog.Nop())
	defer m.Stop()
	waitForTickers(t, fc, 1)

	fc.Advance(30 * time.Second)

	// The errored tick is skipped; the next one still emits.
	select {
	case <-m.Events():
	case <-time.After(time.Second):
		t.Fatal("no event after recovered tick")
	}
	select {
	case <-m.Events():
		t.Fatal("errored tick must not emit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitorStop(t *testing.T) {
	fc := newFakeClock()
	m := NewMonitor(fc, 15*time.Second, DetectorFunc(alwaysDetect), zerolog.Nop())
	waitForTickers(t, fc, 1)

	m.Stop()
	m.Stop() // idempotent

	fc.Advance(time.Minute)
	select {
	case <-m.Events():
		t.Fatal("event emitted after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRandomDetectorThresholds(t *testing.T) {
	// Threshold 1.0 never fires; threshold 0 always fires.
	never := RandomDetector{Threshold: 1.0}
	for i := 0; i < 100; i++ {
		ev, err := never.Detect(time.Now())
		assert.NoError(t, err)
		assert.Nil(t, ev)
	}

	always := RandomDetector{Threshold: 0}
	ev, err := always.Detect(time.Now())
	assert.NoError(t, err)
	if assert.NotNil(t, ev) {
		assert.Equal(t, model.IntegrityKindAttentionLoss, ev.Kind)
	}
}
