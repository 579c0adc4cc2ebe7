package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/internal/trigger/scheduler"
)

func TestScheduleTask(t *testing.T) {
	withFakeScheduler(t, func(
		s *scheduler.Scheduler, timer *fakeTimer, now time.Time,
	) {
		done := make(chan struct{}, 1)

		s.Schedule(context.Background(), "run", now.Add(40*time.Millisecond),
			func() error {
				done <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-done:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("scheduled task did not run")
		}
	})
}

func TestScheduleTaskReplacesSameKey(t *testing.T) {
	withFakeScheduler(t, func(
		s *scheduler.Scheduler, timer *fakeTimer, now time.Time,
	) {
		var firstRuns atomic.Int32
		var secondRuns atomic.Int32
		secondDone := make(chan struct{}, 1)

		s.Schedule(context.Background(), "replace",
			now.Add(300*time.Millisecond),
			func() error {
				firstRuns.Add(1)
				return nil
			},
		)
		assert.Equal(t, 300*time.Millisecond, timer.WaitReset(t))

		s.Schedule(context.Background(), "replace",
			now.Add(40*time.Millisecond),
			func() error {
				secondRuns.Add(1)
				secondDone <- struct{}{}
				return nil
			},
		)
		assert.Equal(t, 40*time.Millisecond, timer.WaitReset(t))
		timer.Fire(now)

		select {
		case <-secondDone:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("replacement task did not run")
		}
		assert.Equal(t, int32(0), firstRuns.Load())
		assert.Equal(t, int32(1), secondRuns.Load())
	})
}

func TestCancelTask(t *testing.T) {
	withFakeScheduler(t, func(
		s *scheduler.Scheduler, timer *fakeTimer, now time.Time,
	) {
		var ran atomic.Bool

		s.Schedule(context.Background(), "cancel",
			now.Add(100*time.Millisecond),
			func() error {
				ran.Store(true)
				return nil
			},
		)
		assert.Equal(t, 100*time.Millisecond, timer.WaitReset(t))
		s.Cancel(context.Background(), "cancel")
		timer.WaitStop(t)
		timer.Fire(now)

		time.Sleep(50 * time.Millisecond)
		assert.False(t, ran.Load())
	})
}

func TestTaskFailuresDoNotStopScheduler(t *testing.T) {
	withFakeScheduler(t, func(
		s *scheduler.Scheduler, timer *fakeTimer, now time.Time,
	) {
		done := make(chan struct{}, 1)

		s.Schedule(context.Background(), "panic", now.Add(time.Millisecond),
			func() error {
				panic("scheduled panic")
			},
		)
		timer.WaitReset(t)
		timer.Fire(now)
		timer.WaitStop(t)

		s.Schedule(context.Background(), "error", now.Add(time.Millisecond),
			func() error {
				return errors.New("scheduled failure")
			},
		)
		timer.WaitReset(t)
		timer.Fire(now)
		timer.WaitStop(t)

		s.Schedule(context.Background(), "after", now.Add(time.Millisecond),
			func() error {
				done <- struct{}{}
				return nil
			},
		)
		timer.WaitReset(t)
		timer.Fire(now)

		select {
		case <-done:
		case <-time.After(schedulerWaitTimeout):
			t.Fatal("scheduler stopped after failing task")
		}
	})
}

func TestSchedulerDefaults(t *testing.T) {
	s := scheduler.New(nil, nil)
	assert.WithinDuration(t, time.Now(), s.Now(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ran := make(chan struct{}, 1)
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	s.Schedule(ctx, "soon", time.Now().Add(10*time.Millisecond),
		func() error {
			ran <- struct{}{}
			return nil
		},
	)

	select {
	case <-ran:
	case <-time.After(schedulerWaitTimeout):
		t.Fatal("scheduled task did not run")
	}
	cancel()
	<-done
}

func withFakeScheduler(
	t *testing.T, fn func(*scheduler.Scheduler, *fakeTimer, time.Time),
) {
	t.Helper()
	now := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
	tc := newTestTimerConstructor()
	s := scheduler.New(func() time.Time { return now }, tc.NewTimer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	timer := tc.WaitTimer(t)
	timer.WaitStop(t)
	fn(s, timer, now)
}
