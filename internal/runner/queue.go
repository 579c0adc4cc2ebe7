package runner

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"
)

type (
	// Queue executes queued tasks sequentially, in the order they were
	// enqueued
	Queue struct {
		tasks    topic.Topic[Task]
		prod     topic.Producer[Task]
		cons     topic.Consumer[Task]
		stop     chan struct{}
		stopOnce sync.Once
		started  sync.Once
		runWG    sync.WaitGroup
		mu       sync.Mutex
		closed   bool
	}

	// Task is a unit of queued work
	Task func()
)

// ErrQueueClosed is returned when a task is enqueued after Flush
var ErrQueueClosed = errors.New("queue closed")

// NewQueue creates a new task queue. Tasks are held until Start is called
func NewQueue() *Queue {
	tasks := caravan.NewTopic[Task]()
	return &Queue{
		tasks: tasks,
		prod:  tasks.NewProducer(),
		cons:  tasks.NewConsumer(),
		stop:  make(chan struct{}),
	}
}

// Start begins processing queued tasks
func (q *Queue) Start() {
	q.started.Do(func() {
		q.runWG.Go(func() {
			for {
				select {
				case <-q.stop:
					return
				case fn, ok := <-q.cons.Receive():
					if !ok {
						return
					}
					q.runTask(fn)
				}
			}
		})
	})
}

// Enqueue adds a task to the queue. A nil task is ignored
func (q *Queue) Enqueue(fn Task) error {
	if fn == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || !message.Send(q.prod, fn) {
		return ErrQueueClosed
	}
	return nil
}

// Flush stops the queue, running any tasks that were already delivered
func (q *Queue) Flush() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stopOnce.Do(func() {
		close(q.stop)
	})
	q.runWG.Wait()
	for {
		select {
		case fn, ok := <-q.cons.Receive():
			if !ok {
				q.close()
				return
			}
			q.runTask(fn)
		default:
			q.close()
			return
		}
	}
}

func (q *Queue) close() {
	q.prod.Close()
	q.cons.Close()
}

func (q *Queue) runTask(fn Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Queued task panic",
				slog.Any("panic", r))
		}
	}()
	fn()
}
