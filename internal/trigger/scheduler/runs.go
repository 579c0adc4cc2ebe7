package scheduler

import (
	"container/heap"
	"time"

	"github.com/kode4food/taskmaster/pkg/api"
)

type (
	// Run is the next armed firing of a trigger
	Run struct {
		Fire    RunFunc
		At      time.Time
		Trigger api.TriggerID
		index   int
	}

	// Runs holds at most one armed Run per trigger, earliest first. Runs due
	// at the same instant are ordered by trigger id
	Runs struct {
		byTrigger map[api.TriggerID]*Run
		queue     runQueue
	}

	runQueue []*Run
)

// NewRuns creates an empty set of armed runs
func NewRuns() *Runs {
	return &Runs{
		byTrigger: map[api.TriggerID]*Run{},
	}
}

// Arm records r as the next run of its trigger, moving any run already armed
// for that trigger. Runs without a trigger, a time or a function are
// ignored
func (rs *Runs) Arm(r *Run) {
	if r == nil || r.Trigger == "" || r.Fire == nil || r.At.IsZero() {
		return
	}
	if cur, ok := rs.byTrigger[r.Trigger]; ok {
		cur.Fire, cur.At = r.Fire, r.At
		heap.Fix(&rs.queue, cur.index)
		return
	}
	rs.byTrigger[r.Trigger] = r
	heap.Push(&rs.queue, r)
}

// Disarm drops the armed run of a trigger, if any
func (rs *Runs) Disarm(id api.TriggerID) {
	r, ok := rs.byTrigger[id]
	if !ok {
		return
	}
	heap.Remove(&rs.queue, r.index)
	delete(rs.byTrigger, id)
}

// Next returns the earliest armed run without removing it
func (rs *Runs) Next() *Run {
	if len(rs.queue) == 0 {
		return nil
	}
	return rs.queue[0]
}

// TakeDue removes and returns the earliest run along with every other run
// due no later than it or now, in firing order
func (rs *Runs) TakeDue(now time.Time) []*Run {
	head := rs.Next()
	if head == nil {
		return nil
	}
	limit := now
	if head.At.After(limit) {
		limit = head.At
	}
	var due []*Run
	for len(rs.queue) > 0 && !rs.queue[0].At.After(limit) {
		r := heap.Pop(&rs.queue).(*Run)
		delete(rs.byTrigger, r.Trigger)
		due = append(due, r)
	}
	return due
}

// Len returns the number of armed runs
func (rs *Runs) Len() int {
	return len(rs.queue)
}

func (q runQueue) Len() int {
	return len(q)
}

func (q runQueue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].Trigger < q[j].Trigger
	}
	return q[i].At.Before(q[j].At)
}

func (q runQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}

func (q *runQueue) Push(x any) {
	r := x.(*Run)
	r.index = len(*q)
	*q = append(*q, r)
}

func (q *runQueue) Pop() any {
	old := *q
	r := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	r.index = -1
	return r
}
