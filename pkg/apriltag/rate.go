package apriltag

import "time"

// rateCounter accumulates observations over a fixed window.
// Only the worker goroutine touches it.
type rateCounter struct {
	clock  Clock
	window time.Duration
	start  time.Time
	count  int
}

func newRateCounter(clock Clock, window time.Duration) *rateCounter {
	return &rateCounter{
		clock:  clock,
		window: window,
		start:  clock.Now(),
	}
}

// Add accumulates n observations into the current window.
func (r *rateCounter) Add(n int) {
	r.count += n
}

// Elapsed returns the time since the window was last reset.
func (r *rateCounter) Elapsed() time.Duration {
	return r.clock.Now().Sub(r.start)
}

// ResetIfElapsed returns the accumulated count and starts a new window once the
// window has fully elapsed. Otherwise it returns false and keeps accumulating.
func (r *rateCounter) ResetIfElapsed() (int, bool) {
	now := r.clock.Now()
	if now.Sub(r.start) < r.window {
		return 0, false
	}

	n := r.count
	r.count = 0
	r.start = now
	return n, true
}
