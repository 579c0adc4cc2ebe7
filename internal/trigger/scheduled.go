package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kode4food/taskmaster/internal/trigger/scheduler"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Scheduled fires at times computed from a schedule. Time and cron
	// triggers are both Scheduled, differing only in how the next run is
	// computed
	Scheduled struct {
		*Base
		first  func(now time.Time) time.Time
		next   func(prev, now time.Time) time.Time
		clock  scheduler.Clock
		timer  scheduler.TimerConstructor
		loc    *time.Location
		cancel context.CancelFunc
		wg     sync.WaitGroup
		mu     sync.Mutex
	}

	// ScheduleOption configures a Scheduled trigger
	ScheduleOption func(*Scheduled)
)

const (
	defaultSchedule = "every 1 hour"
	defaultCron     = "0 * * * *"
)

// WithClock overrides the clock used to compute run times
func WithClock(clock scheduler.Clock) ScheduleOption {
	return func(s *Scheduled) {
		s.clock = clock
	}
}

// WithTimer overrides the timer used by the trigger's scheduler
func WithTimer(timer scheduler.TimerConstructor) ScheduleOption {
	return func(s *Scheduled) {
		s.timer = timer
	}
}

// NewTime creates a trigger driven by a "schedule_str" interval expression
// such as "every 10 minutes" or "every day at 09:00"
func NewTime(
	name string, cfg api.Config, opts ...ScheduleOption,
) (*Scheduled, error) {
	expr := cfg.String("schedule_str", cfg.String("schedule", defaultSchedule))
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	return newScheduled(KindTime, name, cfg, sched.First, sched.Next, opts)
}

// NewCron creates a trigger driven by a "cron_expression" option
func NewCron(
	name string, cfg api.Config, opts ...ScheduleOption,
) (*Scheduled, error) {
	expr := cfg.String("cron_expression",
		cfg.String("expression", defaultCron))
	cron, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	next := func(prev, now time.Time) time.Time {
		if prev.After(now) {
			return cron.Next(prev)
		}
		return cron.Next(now)
	}
	return newScheduled(KindCron, name, cfg, cron.Next, next, opts)
}

func newScheduled(
	kind, name string, cfg api.Config, first func(time.Time) time.Time,
	next func(time.Time, time.Time) time.Time, opts []ScheduleOption,
) (*Scheduled, error) {
	loc := time.Local
	if tz := cfg.String("timezone", ""); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q", ErrInvalidSchedule, tz)
		}
		loc = l
	}
	s := &Scheduled{
		Base:  NewBase(kind, name, cfg),
		first: first,
		next:  next,
		clock: time.Now,
		timer: scheduler.NewTimer,
		loc:   loc,
	}
	s.bind(s)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Activate starts the trigger's scheduler and arms the first run
func (s *Scheduled) Activate() error {
	if !s.markActive() {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	sched := scheduler.New(s.now, s.timer)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Go(func() {
		sched.Run(ctx)
	})
	s.arm(ctx, sched, s.first(s.now()))
	slog.Info("Trigger activated",
		log.TriggerID(s.ID()),
		slog.String("kind", s.Kind()))
	return nil
}

// Deactivate stops the scheduler and waits for an in-flight firing to
// return
func (s *Scheduled) Deactivate() {
	if !s.markInactive() {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	slog.Info("Trigger deactivated", log.TriggerID(s.ID()))
}

func (s *Scheduled) arm(
	ctx context.Context, sched *scheduler.Scheduler, at time.Time,
) {
	if at.IsZero() {
		slog.Error("Trigger has no upcoming run",
			log.TriggerID(s.ID()))
		return
	}
	sched.Schedule(ctx, s.ID(), at, func() error {
		if !s.IsActive() {
			return nil
		}
		now := s.now()
		s.Fire(api.EventData{
			"trigger_time": now.Unix(),
		})
		s.arm(ctx, sched, s.next(at, s.now()))
		return nil
	})
}

func (s *Scheduled) now() time.Time {
	return s.clock().In(s.loc)
}
