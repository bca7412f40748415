package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForTickers(t *testing.T, fc *fakeClock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return fc.tickerCount() >= n },
		time.Second, time.Millisecond)
}

func TestCountdownRemaining(t *testing.T) {
	fc := newFakeClock()
	cd := NewCountdown(fc, 30*time.Second)
	defer cd.Stop()
	waitForTickers(t, fc, 1)

	assert.Equal(t, 30, cd.Remaining())

	fc.Advance(10 * time.Second)
	assert.Equal(t, 20, cd.Remaining())

	// Remaining never goes negative, even long past the deadline.
	fc.Advance(5 * time.Minute)
	assert.Equal(t, 0, cd.Remaining())
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	fc := newFakeClock()
	cd := NewCountdown(fc, 3*time.Second)
	waitForTickers(t, fc, 1)

	fc.Advance(3 * time.Second)

	select {
	case <-cd.Expired():
	case <-time.After(time.Second):
		t.Fatal("expiry signal not delivered")
	}

	// Further ticks must not produce a second signal.
	fc.Advance(10 * time.Second)
	select {
	case <-cd.Expired():
		t.Fatal("expiry delivered twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownDelayedWakeupStillFires(t *testing.T) {
	fc := newFakeClock()
	cd := NewCountdown(fc, 5*time.Second)
	waitForTickers(t, fc, 1)

	// A single large jump models scheduling jitter swallowing ticks: the
	// deadline is computed from the clock, so one late tick is enough.
	fc.Advance(60 * time.Second)

	select {
	case <-cd.Expired():
	case <-time.After(time.Second):
		t.Fatal("expiry signal not delivered after delayed wake-up")
	}
}

func TestCountdownStopPreventsExpiry(t *testing.T) {
	fc := newFakeClock()
	cd := NewCountdown(fc, 2*time.Second)
	waitForTickers(t, fc, 1)

	cd.Stop()
	cd.Stop() // idempotent

	fc.Advance(10 * time.Second)
	select {
	case <-cd.Expired():
		t.Fatal("expiry delivered after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
