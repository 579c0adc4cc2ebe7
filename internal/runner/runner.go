package runner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
	"github.com/kode4food/taskmaster/pkg/util"
)

type (
	// Runner is the registry of workflows and the surface through which
	// they are run, started and stopped. It does not serialize calls to
	// different workflows; runs of a single workflow are guarded by the
	// workflow itself
	Runner struct {
		workflows map[api.WorkflowID]*workflow.Workflow
		active    util.Set[api.WorkflowID]
		events    topic.Topic[api.Event]
		prod      topic.Producer[api.Event]
		queue     *Queue
		pending   atomic.Int64
		queueSize int64
		mu        sync.RWMutex
		lifeMu    sync.Mutex
		pubMu     sync.RWMutex
		closeOnce sync.Once
		closed    bool
	}

	// EventConsumer receives runner and workflow lifecycle events
	EventConsumer = topic.Consumer[api.Event]

	// Option configures a Runner at construction
	Option func(*Runner)
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowExists   = errors.New("workflow already registered")
	ErrQueueFull        = errors.New("run queue is full")
	ErrRunnerClosed     = errors.New("runner closed")
)

// New creates an empty Runner with its run queue started
func New(opts ...Option) *Runner {
	events := caravan.NewTopic[api.Event]()
	r := &Runner{
		workflows: map[api.WorkflowID]*workflow.Workflow{},
		active:    util.Set[api.WorkflowID]{},
		events:    events,
		prod:      events.NewProducer(),
		queue:     NewQueue(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue.Start()
	return r
}

// WithQueueSize bounds how many enqueued runs may be waiting at once.
// Values below 1 leave the queue unbounded
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		r.queueSize = int64(max(n, 0))
	}
}

// Register adds a workflow to the registry. The workflow's run events are
// republished on the Runner's event topic for as long as it stays
// registered
func (r *Runner) Register(wf *workflow.Workflow) error {
	r.mu.Lock()
	id := wf.ID()
	if _, ok := r.workflows[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkflowExists, id)
	}
	r.workflows[id] = wf
	r.mu.Unlock()

	wf.Observe(func(ev api.Event) {
		if r.owns(wf) {
			r.publish(ev)
		}
	})
	r.publish(api.Event{
		Type:       api.EventTypeWorkflowRegistered,
		WorkflowID: id,
	})
	slog.Info("Workflow registered",
		log.WorkflowID(id),
		slog.String("name", wf.Name()))
	return nil
}

// Unregister removes a workflow from the registry, stopping it first if
// it is active
func (r *Runner) Unregister(id api.WorkflowID) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	r.mu.Lock()
	wf, ok := r.workflows[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	wasActive := r.active.Contains(id)
	r.active.Remove(id)
	delete(r.workflows, id)
	r.mu.Unlock()

	if wasActive {
		wf.Deactivate()
		r.publish(api.Event{
			Type:       api.EventTypeWorkflowDeactivated,
			WorkflowID: id,
		})
	}
	r.publish(api.Event{
		Type:       api.EventTypeWorkflowUnregistered,
		WorkflowID: id,
	})
	slog.Info("Workflow unregistered", log.WorkflowID(id))
	return nil
}

// Start activates the workflow's triggers and marks it active. Starting
// an active workflow does nothing
func (r *Runner) Start(id api.WorkflowID) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	wf, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if r.isActive(id) {
		slog.Debug("Workflow already active", log.WorkflowID(id))
		return nil
	}
	if err := wf.Activate(); err != nil {
		return err
	}
	r.setActive(id, true)
	r.publish(api.Event{
		Type:       api.EventTypeWorkflowActivated,
		WorkflowID: id,
	})
	return nil
}

// Stop deactivates the workflow's triggers. Stopping an inactive workflow
// logs a warning and does nothing
func (r *Runner) Stop(id api.WorkflowID) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	wf, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if !r.isActive(id) {
		slog.Warn("Workflow not active", log.WorkflowID(id))
		return nil
	}
	wf.Deactivate()
	r.setActive(id, false)
	r.publish(api.Event{
		Type:       api.EventTypeWorkflowDeactivated,
		WorkflowID: id,
	})
	return nil
}

// StartAll starts every registered workflow, in name order. Every
// workflow is attempted; the failures are joined
func (r *Runner) StartAll() error {
	var errs []error
	for _, st := range r.List() {
		if err := r.Start(st.ID); err != nil {
			errs = append(errs, fmt.Errorf("workflow %s: %w", st.Name, err))
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every active workflow
func (r *Runner) StopAll() {
	r.mu.RLock()
	ids := util.Sorted(r.active)
	r.mu.RUnlock()
	for _, id := range ids {
		if err := r.Stop(id); err != nil {
			slog.Warn("Could not stop workflow",
				log.WorkflowID(id),
				log.Error(err))
		}
	}
}

// RunNow runs the workflow synchronously and returns its Context. An
// unknown id fails without touching any state
func (r *Runner) RunNow(
	ctx context.Context, id api.WorkflowID, data api.EventData,
) (*workflow.Context, error) {
	wf, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return wf.Run(ctx, data)
}

// Enqueue schedules a run of the workflow on the Runner's queue. Queued
// runs execute one at a time in the order they were enqueued, so none are
// skipped by the workflow's re-entrancy guard
func (r *Runner) Enqueue(id api.WorkflowID, data api.EventData) error {
	wf, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if n := r.pending.Add(1); r.queueSize > 0 && n > r.queueSize {
		r.pending.Add(-1)
		return fmt.Errorf("%w: %d runs waiting", ErrQueueFull, r.queueSize)
	}
	data = data.Clone()
	err := r.queue.Enqueue(func() {
		defer r.pending.Add(-1)
		if _, err := wf.Run(context.Background(), data); err != nil {
			slog.Error("Queued run failed",
				log.WorkflowID(id),
				log.Error(err))
		}
	})
	if err != nil {
		r.pending.Add(-1)
		return fmt.Errorf("%w: %w", ErrRunnerClosed, err)
	}
	return nil
}

// Status returns a snapshot of the workflow and its actions
func (r *Runner) Status(id api.WorkflowID) (*api.WorkflowStatus, error) {
	wf, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return r.status(wf), nil
}

// List returns a snapshot of every registered workflow, sorted by name
func (r *Runner) List() []*api.WorkflowStatus {
	r.mu.RLock()
	wfs := make([]*workflow.Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		wfs = append(wfs, wf)
	}
	r.mu.RUnlock()

	res := make([]*api.WorkflowStatus, len(wfs))
	for i, wf := range wfs {
		res[i] = r.status(wf)
	}
	slices.SortFunc(res, func(a, b *api.WorkflowStatus) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return res
}

// Get returns the registered workflow with the given id
func (r *Runner) Get(id api.WorkflowID) (*workflow.Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.workflows[id]
	return wf, ok
}

// Events returns a new consumer of runner and workflow events. Callers
// must Close the consumer when they are done with it
func (r *Runner) Events() EventConsumer {
	return r.events.NewConsumer()
}

// Close stops every workflow, drains the run queue and closes the event
// topic's producer
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.StopAll()
		r.queue.Flush()

		r.pubMu.Lock()
		defer r.pubMu.Unlock()
		r.closed = true
		r.prod.Close()
	})
}

func (r *Runner) status(wf *workflow.Workflow) *api.WorkflowStatus {
	res := wf.Status()
	res.IsActive = r.isActive(wf.ID())
	return res
}

func (r *Runner) isActive(id api.WorkflowID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active.Contains(id)
}

func (r *Runner) setActive(id api.WorkflowID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active {
		r.active.Add(id)
		return
	}
	r.active.Remove(id)
}

func (r *Runner) owns(wf *workflow.Workflow) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workflows[wf.ID()] == wf
}

func (r *Runner) publish(ev api.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	r.pubMu.RLock()
	defer r.pubMu.RUnlock()
	if r.closed {
		return
	}
	message.Send(r.prod, ev)
}
