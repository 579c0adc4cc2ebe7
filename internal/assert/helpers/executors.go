package helpers

import (
	"context"
	"slices"
	"sync"

	"github.com/kode4food/taskmaster/internal/workflow"
)

// Recorder hands out executors that record the order in which they ran
type Recorder struct {
	calls []string
	mu    sync.Mutex
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Returning produces an executor that records name and returns result
func (r *Recorder) Returning(name string, result any) workflow.Executor {
	return workflow.ExecutorFunc(
		func(context.Context, *workflow.Context) (any, error) {
			r.record(name)
			return result, nil
		},
	)
}

// Failing produces an executor that records name and returns err
func (r *Recorder) Failing(name string, err error) workflow.Executor {
	return workflow.ExecutorFunc(
		func(context.Context, *workflow.Context) (any, error) {
			r.record(name)
			return nil, err
		},
	)
}

// Wrap records name and then delegates to exec
func (r *Recorder) Wrap(name string, exec workflow.Executor) workflow.Executor {
	return workflow.ExecutorFunc(
		func(ctx context.Context, c *workflow.Context) (any, error) {
			r.record(name)
			return exec.Execute(ctx, c)
		},
	)
}

// Calls returns the recorded names in execution order
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how many times name was recorded
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (r *Recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Value returns an executor that always succeeds with v
func Value(v any) workflow.Executor {
	return workflow.ExecutorFunc(
		func(context.Context, *workflow.Context) (any, error) {
			return v, nil
		},
	)
}

// Blocking returns an executor that signals started and then waits for
// release before returning v
func Blocking(started chan<- struct{}, release <-chan struct{}, v any) workflow.Executor {
	return workflow.ExecutorFunc(
		func(context.Context, *workflow.Context) (any, error) {
			started <- struct{}{}
			<-release
			return v, nil
		},
	)
}
