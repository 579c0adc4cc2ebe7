package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kode4food/taskmaster/pkg/api"
)

type (
	// Executor performs the work of an action. The returned value is stored
	// in the run Context under the action's id
	Executor interface {
		Execute(ctx context.Context, c *Context) (any, error)
	}

	// ExecutorFunc adapts a plain function to the Executor interface
	ExecutorFunc func(ctx context.Context, c *Context) (any, error)

	// Action is a named unit of work with a status lifecycle and a set of
	// upstream dependencies
	Action struct {
		executor Executor
		result   any
		err      error
		config   api.Config
		id       api.ActionID
		name     string
		kind     string
		status   api.Status
		deps     []*Action
		mu       sync.RWMutex
	}

	// ActionOption configures an Action at construction
	ActionOption func(*Action)
)

// Execute calls f(ctx, c)
func (f ExecutorFunc) Execute(ctx context.Context, c *Context) (any, error) {
	return f(ctx, c)
}

// NewAction creates a pending action that performs its work with exec
func NewAction(name string, exec Executor, opts ...ActionOption) *Action {
	a := &Action{
		id:       api.NewActionID(),
		name:     name,
		executor: exec,
		config:   api.Config{},
		status:   api.StatusPending,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.name == "" {
		a.name = "Action_" + api.ShortID(a.id)
	}
	return a
}

// WithActionID overrides the generated action id
func WithActionID(id api.ActionID) ActionOption {
	return func(a *Action) {
		a.id = id
	}
}

// WithConfig attaches the options the action was built from
func WithConfig(cfg api.Config) ActionOption {
	return func(a *Action) {
		if cfg != nil {
			a.config = cfg
		}
	}
}

// WithKind records the catalog type the action was built from
func WithKind(kind string) ActionOption {
	return func(a *Action) {
		a.kind = kind
	}
}

func (a *Action) ID() api.ActionID {
	return a.id
}

func (a *Action) Name() string {
	return a.name
}

func (a *Action) Kind() string {
	return a.kind
}

func (a *Action) Config() api.Config {
	return a.config
}

func (a *Action) Status() api.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Action) Result() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.result
}

// Err returns the error captured by the last failed run
func (a *Action) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Dependencies returns the actions this action depends on
func (a *Action) Dependencies() []*Action {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.deps)
}

// DependsOn reports whether id is a direct dependency
func (a *Action) DependsOn(id api.ActionID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.ContainsFunc(a.deps, func(d *Action) bool {
		return d.id == id
	})
}

// CanExecute reports whether every dependency has completed
func (a *Action) CanExecute() bool {
	for _, dep := range a.Dependencies() {
		if dep.Status() != api.StatusCompleted {
			return false
		}
	}
	return true
}

// Reset returns the action to pending and clears its result and error
func (a *Action) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = api.StatusPending
	a.result = nil
	a.err = nil
}

// Run executes the action against c while tracking its status. On success
// the result is stored and returned. On failure the error is captured and
// also returned, leaving the decision to continue with the caller. A panic
// inside the executor is recorded as ErrActionPanicked
func (a *Action) Run(ctx context.Context, c *Context) (any, error) {
	if err := a.transition(api.StatusRunning); err != nil {
		return nil, err
	}

	res, err := a.execute(ctx, c)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status = api.StatusFailed
		a.err = err
		return nil, err
	}
	a.status = api.StatusCompleted
	a.result = res
	return res, nil
}

func (a *Action) execute(ctx context.Context, c *Context) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()
	if a.executor == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExecutor, a.name)
	}
	return a.executor.Execute(ctx, c)
}

func (a *Action) transition(to api.Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !actionTransitions.CanTransition(a.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.status, to)
	}
	a.status = to
	return nil
}

func (a *Action) addDependency(dep *Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Contains(a.deps, dep) {
		return
	}
	a.deps = append(a.deps, dep)
}

func (a *Action) removeDependency(id api.ActionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deps = slices.DeleteFunc(a.deps, func(d *Action) bool {
		return d.id == id
	})
}
