package scheduler

import "time"

type (
	// Clock reports the current time. Triggers substitute a frozen clock in
	// tests
	Clock func() time.Time

	// Timer wakes the scheduler when the earliest armed run is due
	Timer interface {
		Channel() <-chan time.Time
		Reset(delay time.Duration) bool
		Stop() bool
	}

	// TimerConstructor builds a Timer that first expires after delay
	TimerConstructor func(delay time.Duration) Timer

	wallTimer struct {
		t *time.Timer
	}
)

// NewTimer returns a Timer backed by the runtime's wall clock timer
func NewTimer(delay time.Duration) Timer {
	return wallTimer{t: time.NewTimer(delay)}
}

// Until returns how long until at, never less than zero
func (c Clock) Until(at time.Time) time.Duration {
	return max(at.Sub(c()), 0)
}

func (w wallTimer) Channel() <-chan time.Time {
	return w.t.C
}

func (w wallTimer) Reset(delay time.Duration) bool {
	return w.t.Reset(delay)
}

func (w wallTimer) Stop() bool {
	return w.t.Stop()
}
