package engine

import (
	"sync"
	"time"
)

// Countdown turns elapsed wall time into remaining seconds and a one-shot
// expiry signal. Remaining time is always computed from startedAt and
// Clock.Now(), never from accumulated tick counts, so a delayed wake-up
// does not skew the deadline.
type Countdown struct {
	clock     Clock
	startedAt time.Time
	duration  time.Duration

	expired  chan time.Time
	quit     chan struct{}
	stopOnce sync.Once
}

// NewCountdown starts a countdown of the given duration. The expiry signal
// is delivered exactly once on the Expired channel; Stop cancels delivery
// and releases the ticker.
func NewCountdown(clock Clock, duration time.Duration) *Countdown {
	c := &Countdown{
		clock:     clock,
		startedAt: clock.Now(),
		duration:  duration,
		expired:   make(chan time.Time, 1),
		quit:      make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Countdown) run() {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case now := <-ticker.C():
			if !now.Before(c.startedAt.Add(c.duration)) {
				select {
				case <-c.quit:
					return
				default:
				}
				c.expired <- now // buffered, single send
				return
			}
		}
	}
}

// Remaining returns the non-negative number of whole seconds left.
func (c *Countdown) Remaining() int {
	left := c.duration - c.clock.Now().Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// StartedAt returns the instant the countdown began.
func (c *Countdown) StartedAt() time.Time { return c.startedAt }

// Expired delivers the expiry instant at most once.
func (c *Countdown) Expired() <-chan time.Time { return c.expired }

// Stop cancels the countdown and releases the ticker. An expiry racing
// with Stop may still be buffered; the controller's status gate makes that
// harmless. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}
