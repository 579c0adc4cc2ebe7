package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Workflow owns a dependency graph of actions, the triggers that launch
	// it, and the Context produced by its most recent run
	Workflow struct {
		context     *Context
		actions     map[api.ActionID]*Action
		id          api.WorkflowID
		name        string
		description string
		order       []api.ActionID
		triggers    []trigger.Trigger
		observers   []Observer
		parallelism int
		mu          sync.RWMutex
		running     atomic.Bool
		active      atomic.Bool
	}

	// Option configures a Workflow at construction
	Option func(*Workflow)

	// Observer receives run and action lifecycle events
	Observer func(api.Event)
)

var (
	ErrActionExists        = errors.New("action already exists")
	ErrActionNotRegistered = errors.New("action not registered in workflow")
	ErrCircularDependency  = errors.New("circular dependency detected")
	ErrInvalidTransition   = errors.New("invalid action status transition")
	ErrActionPanicked      = errors.New("action panicked")
	ErrNoExecutor          = errors.New("action has no executor")
)

// New creates an empty workflow. Without WithName, the name is derived from
// the workflow's id
func New(opts ...Option) *Workflow {
	w := &Workflow{
		id:          api.NewWorkflowID(),
		actions:     map[api.ActionID]*Action{},
		context:     NewContext(nil),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name == "" {
		w.name = "Workflow_" + api.ShortID(w.id)
	}
	return w
}

// WithID overrides the generated workflow id
func WithID(id api.WorkflowID) Option {
	return func(w *Workflow) {
		w.id = id
	}
}

// WithName sets the human-readable workflow name
func WithName(name string) Option {
	return func(w *Workflow) {
		w.name = name
	}
}

// WithDescription sets the workflow description
func WithDescription(desc string) Option {
	return func(w *Workflow) {
		w.description = desc
	}
}

// WithParallelism bounds how many ready actions may execute at once within
// a single round. Values below 2 keep execution sequential
func WithParallelism(n int) Option {
	return func(w *Workflow) {
		w.parallelism = max(n, 1)
	}
}

func (w *Workflow) ID() api.WorkflowID {
	return w.id
}

func (w *Workflow) Name() string {
	return w.name
}

func (w *Workflow) Description() string {
	return w.description
}

// IsRunning reports whether a run is currently in progress
func (w *Workflow) IsRunning() bool {
	return w.running.Load()
}

// IsActive reports whether the workflow's triggers are activated
func (w *Workflow) IsActive() bool {
	return w.active.Load()
}

// Context returns the Context of the current or most recent run
func (w *Workflow) Context() *Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.context
}

// Actions returns the registered actions in insertion order
func (w *Workflow) Actions() []*Action {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.orderedActions()
}

// Action returns the registered action with the given id
func (w *Workflow) Action(id api.ActionID) (*Action, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actions[id]
	return a, ok
}

// Triggers returns the attached triggers in the order they were added
func (w *Workflow) Triggers() []trigger.Trigger {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.triggers)
}

// AddAction registers an action with the workflow
func (w *Workflow) AddAction(a *Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.actions[a.id]; ok {
		return fmt.Errorf("%w: %s", ErrActionExists, a.id)
	}
	w.actions[a.id] = a
	w.order = append(w.order, a.id)
	return nil
}

// AddDependency declares that the action id cannot run until dependsOn has
// completed. Both actions must already be registered. Cycles are not
// rejected here; they are detected when the workflow runs
func (w *Workflow) AddDependency(id, dependsOn api.ActionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.actions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, id)
	}
	dep, ok := w.actions[dependsOn]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, dependsOn)
	}
	a.addDependency(dep)
	return nil
}

// RemoveAction unregisters an action and removes it from the dependency
// lists of the remaining actions
func (w *Workflow) RemoveAction(id api.ActionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.actions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, id)
	}
	delete(w.actions, id)
	w.order = slices.DeleteFunc(w.order, func(o api.ActionID) bool {
		return o == id
	})
	for _, a := range w.actions {
		a.removeDependency(id)
	}
	return nil
}

// AddTrigger attaches a trigger whose firings run the workflow
func (w *Workflow) AddTrigger(t trigger.Trigger) {
	w.mu.Lock()
	w.triggers = append(w.triggers, t)
	w.mu.Unlock()
	t.RegisterCallback(w.triggered)
}

// Observe registers a function that receives run and action events
func (w *Workflow) Observe(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

// Activate activates every attached trigger. If any trigger fails to
// activate, the ones already activated are deactivated again
func (w *Workflow) Activate() error {
	triggers := w.Triggers()
	for i, t := range triggers {
		if err := t.Activate(); err != nil {
			for _, prev := range triggers[:i] {
				prev.Deactivate()
			}
			return fmt.Errorf("trigger %s: %w", t.Name(), err)
		}
	}
	w.active.Store(true)
	slog.Info("Workflow activated",
		log.WorkflowID(w.id),
		slog.Int("triggers", len(triggers)))
	return nil
}

// Deactivate deactivates every attached trigger
func (w *Workflow) Deactivate() {
	for _, t := range w.Triggers() {
		t.Deactivate()
	}
	if w.active.CompareAndSwap(true, false) {
		slog.Info("Workflow deactivated", log.WorkflowID(w.id))
	}
}

// Run executes every action once, honoring dependency order, and returns
// the resulting Context. Action failures are captured on the actions and
// never abort the run; callers inspect per-action status to detect partial
// failure. Run is not reentrant: a call made while another run is in
// progress returns the in-progress Context without error
func (w *Workflow) Run(ctx context.Context, data api.EventData) (*Context, error) {
	if !w.running.CompareAndSwap(false, true) {
		slog.Warn("Workflow already running",
			log.WorkflowID(w.id))
		w.publish(api.Event{Type: api.EventTypeRunSkipped})
		return w.Context(), nil
	}
	defer w.running.Store(false)

	c, actions := w.startRun(data)
	w.publish(api.Event{Type: api.EventTypeRunStarted})
	slog.Info("Workflow run started",
		log.WorkflowID(w.id),
		slog.Int("actions", len(actions)))

	err := w.runRounds(ctx, c, actions)

	ev := api.Event{Type: api.EventTypeRunCompleted}
	if err != nil {
		ev.Error = err.Error()
	}
	w.publish(ev)
	slog.Info("Workflow run completed",
		log.WorkflowID(w.id),
		slog.Int("failed", countStatus(actions, api.StatusFailed)))
	return c, err
}

// Status returns a point-in-time summary of the workflow and its actions
func (w *Workflow) Status() *api.WorkflowStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	res := &api.WorkflowStatus{
		ID:           w.id,
		Name:         w.name,
		Description:  w.description,
		IsActive:     w.active.Load(),
		IsRunning:    w.running.Load(),
		TriggerCount: len(w.triggers),
		ActionCount:  len(w.actions),
		Actions:      make(map[api.ActionID]api.ActionStatus, len(w.actions)),
	}
	for id, a := range w.actions {
		st := api.ActionStatus{
			Name:   a.Name(),
			Status: a.Status(),
		}
		if err := a.Err(); err != nil {
			st.HasError = true
			st.Error = err.Error()
		}
		res.Actions[id] = st
	}
	return res
}

func (w *Workflow) startRun(data api.EventData) (*Context, []*Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.context = NewContext(data)
	actions := w.orderedActions()
	for _, a := range actions {
		a.Reset()
	}
	return w.context, actions
}

func (w *Workflow) runRounds(
	ctx context.Context, c *Context, actions []*Action,
) error {
	for round := 1; ; round++ {
		ready := readyActions(actions)
		if len(ready) == 0 {
			return w.finish(actions)
		}
		slog.Debug("Scheduling round",
			log.WorkflowID(w.id),
			slog.Int("round", round),
			slog.Int("ready", len(ready)))
		w.execRound(ctx, c, ready)
	}
}

func (w *Workflow) finish(actions []*Action) error {
	var pending []*Action
	for _, a := range actions {
		if a.Status() == api.StatusPending {
			pending = append(pending, a)
		}
	}
	stuck := cycleBound(pending)
	if blocked := len(pending) - len(stuck); blocked > 0 {
		slog.Debug("Actions blocked by failed dependencies",
			log.WorkflowID(w.id),
			slog.Int("blocked", blocked))
	}
	if len(stuck) == 0 {
		return nil
	}
	ids := make([]string, len(stuck))
	for i, a := range stuck {
		ids[i] = string(a.id)
	}
	err := fmt.Errorf("%w: %s", ErrCircularDependency,
		strings.Join(ids, ", "))
	slog.Error("Workflow cannot make progress",
		log.WorkflowID(w.id),
		log.Error(err))
	return err
}

func (w *Workflow) execRound(ctx context.Context, c *Context, ready []*Action) {
	if w.parallelism < 2 || len(ready) == 1 {
		for _, a := range ready {
			w.execAction(ctx, c, a)
		}
		return
	}

	sem := make(chan struct{}, w.parallelism)
	var wg sync.WaitGroup
	for _, a := range ready {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()
			w.execAction(ctx, c, a)
		})
	}
	wg.Wait()
}

func (w *Workflow) execAction(ctx context.Context, c *Context, a *Action) {
	res, err := a.Run(ctx, c)
	if err != nil {
		slog.Error("Action failed",
			log.WorkflowID(w.id),
			log.ActionID(a.id),
			slog.String("name", a.name),
			log.Error(err))
		w.publish(api.Event{
			Type:     api.EventTypeActionFailed,
			ActionID: a.id,
			Status:   api.StatusFailed,
			Error:    err.Error(),
		})
		return
	}
	c.Set(string(a.id), res)
	slog.Debug("Action completed",
		log.WorkflowID(w.id),
		log.ActionID(a.id))
	w.publish(api.Event{
		Type:     api.EventTypeActionCompleted,
		ActionID: a.id,
		Status:   api.StatusCompleted,
	})
}

func (w *Workflow) triggered(src trigger.Source, data api.EventData) {
	slog.Info("Trigger fired",
		log.WorkflowID(w.id),
		log.TriggerID(src.ID()),
		slog.String("trigger", src.Name()))
	if _, err := w.Run(context.Background(), data); err != nil {
		slog.Error("Triggered run failed",
			log.WorkflowID(w.id),
			log.TriggerID(src.ID()),
			log.Error(err))
	}
}

func (w *Workflow) publish(ev api.Event) {
	w.mu.RLock()
	observers := slices.Clone(w.observers)
	w.mu.RUnlock()
	if len(observers) == 0 {
		return
	}
	ev.WorkflowID = w.id
	ev.Timestamp = time.Now()
	for _, o := range observers {
		o(ev)
	}
}

func (w *Workflow) orderedActions() []*Action {
	res := make([]*Action, 0, len(w.order))
	for _, id := range w.order {
		res = append(res, w.actions[id])
	}
	return res
}

func readyActions(actions []*Action) []*Action {
	var ready []*Action
	for _, a := range actions {
		if a.Status() == api.StatusPending && a.CanExecute() {
			ready = append(ready, a)
		}
	}
	return ready
}

// cycleBound returns, in the order given, the pending actions that sit on a
// dependency cycle or depend on one through other pending actions. Any
// remaining pending action is blocked only by a failed dependency
func cycleBound(pending []*Action) []*Action {
	onCycle := cycleMembers(pending)
	memo := make(map[*Action]bool, len(pending))
	var reaches func(a *Action) bool
	reaches = func(a *Action) bool {
		if onCycle[a] {
			return true
		}
		if res, ok := memo[a]; ok {
			return res
		}
		res := false
		for _, dep := range a.Dependencies() {
			if dep.Status() == api.StatusPending && reaches(dep) {
				res = true
				break
			}
		}
		memo[a] = res
		return res
	}

	var res []*Action
	for _, a := range pending {
		if reaches(a) {
			res = append(res, a)
		}
	}
	return res
}

// cycleMembers finds the strongly connected components of the pending
// dependency graph and returns the actions belonging to a cycle: components
// of two or more actions, or a single action depending on itself
func cycleMembers(pending []*Action) map[*Action]bool {
	type mark struct {
		index, low int
		onStack    bool
	}
	marks := make(map[*Action]*mark, len(pending))
	members := map[*Action]bool{}
	var stack []*Action
	next := 0

	var visit func(a *Action)
	visit = func(a *Action) {
		m := &mark{index: next, low: next, onStack: true}
		marks[a] = m
		next++
		stack = append(stack, a)

		for _, dep := range a.Dependencies() {
			if dep.Status() != api.StatusPending {
				continue
			}
			if dm, ok := marks[dep]; !ok {
				visit(dep)
				m.low = min(m.low, marks[dep].low)
			} else if dm.onStack {
				m.low = min(m.low, dm.index)
			}
		}
		if m.low != m.index {
			return
		}

		var scc []*Action
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			marks[top].onStack = false
			scc = append(scc, top)
			if top == a {
				break
			}
		}
		if len(scc) > 1 || a.DependsOn(a.id) {
			for _, s := range scc {
				members[s] = true
			}
		}
	}

	for _, a := range pending {
		if _, ok := marks[a]; !ok {
			visit(a)
		}
	}
	return members
}

func countStatus(actions []*Action, status api.Status) int {
	n := 0
	for _, a := range actions {
		if a.Status() == status {
			n++
		}
	}
	return n
}
