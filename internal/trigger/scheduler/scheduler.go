package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Scheduler fires armed trigger runs from a single goroutine. Each
	// trigger has at most one armed run; arming again moves it
	Scheduler struct {
		now       Clock
		makeTimer TimerConstructor
		requests  chan request
	}

	// RunFunc is called when an armed run comes due
	RunFunc func() error

	request struct {
		run    *Run
		disarm api.TriggerID
	}
)

const requestBufferSize = 16

// New creates a scheduler using the provided clock and timer constructor.
// Nil arguments fall back to the system clock and timer
func New(now Clock, makeTimer TimerConstructor) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if makeTimer == nil {
		makeTimer = NewTimer
	}
	return &Scheduler{
		now:       now,
		makeTimer: makeTimer,
		requests:  make(chan request, requestBufferSize),
	}
}

// Now returns the current time according to the scheduler's clock
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Schedule arms the next run of a trigger, replacing any run it already had
func (s *Scheduler) Schedule(
	ctx context.Context, id api.TriggerID, at time.Time, fn RunFunc,
) {
	s.send(ctx, request{run: &Run{Trigger: id, At: at, Fire: fn}})
}

// Cancel disarms the trigger's pending run
func (s *Scheduler) Cancel(ctx context.Context, id api.TriggerID) {
	s.send(ctx, request{disarm: id})
}

// Run processes requests and fires due runs until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	runs := NewRuns()
	var wake <-chan time.Time

	rearm := func() {
		next := runs.Next()
		if next == nil {
			timer.Stop()
			wake = nil
			return
		}
		timer.Reset(s.now.Until(next.At))
		wake = timer.Channel()
	}
	rearm()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.requests:
			if req.run != nil {
				runs.Arm(req.run)
			} else {
				runs.Disarm(req.disarm)
			}
			rearm()
		case <-wake:
			for _, r := range runs.TakeDue(s.now()) {
				fire(r)
			}
			rearm()
		}
	}
}

func (s *Scheduler) send(ctx context.Context, req request) {
	select {
	case s.requests <- req:
	case <-ctx.Done():
	}
}

func fire(r *Run) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Scheduled run panicked",
				log.TriggerID(r.Trigger),
				slog.Any("panic", rec))
		}
	}()
	if err := r.Fire(); err != nil {
		slog.Error("Scheduled run failed",
			log.TriggerID(r.Trigger),
			log.Error(err))
	}
}
