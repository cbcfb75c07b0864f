// Package worker runs tasks on one background goroutine, highest priority first.
package worker

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creasty/defaults"
	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/metrics"
)

var ErrJoinTimeout = errors.New("worker did not terminate in time")

type State int32

const (
	StateIdle State = iota
	StateDraining
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDraining:
		return "Draining"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	}
	return "State(?)"
}

type Config struct {
	// Capacity is the maximum number of pending tasks, the oldest is dropped beyond it.
	Capacity int `yaml:"capacity" mapstructure:"capacity" default:"1000" validate:"min=1"`
	// JoinRetries times JoinInterval is how long Terminate waits for the consumer.
	JoinRetries  int           `yaml:"joinRetries" mapstructure:"joinRetries" default:"50" validate:"min=1"`
	JoinInterval time.Duration `yaml:"joinInterval" mapstructure:"joinInterval" default:"100ms" validate:"min=1ms"`
}

type Handler interface {
	Handle(Task) error
}

type HandlerFunc func(Task) error

func (f HandlerFunc) Handle(t Task) error {
	return f(t)
}

type Option func(*Queue)

// WithOnClose sets a hook the consumer runs once it stops.
func WithOnClose(f func()) Option {
	return func(q *Queue) { q.onClose = f }
}

func WithLogger(l *log.Entry) Option {
	return func(q *Queue) { q.log = l }
}

// Queue is a bounded, priority ordered list of tasks drained by a single consumer
// goroutine. Enqueue never blocks.
type Queue struct {
	cfg     Config
	handler Handler
	onClose func()
	log     *log.Entry

	mu    sync.Mutex
	tasks []Task
	seq   uint64

	wake        chan struct{}
	state       atomic.Int32
	terminating atomic.Bool
	closing     chan struct{}
	closingOnce sync.Once
	terminated  chan struct{}
}

// New starts the consumer. Zero fields of cfg get their defaults.
func New(cfg Config, handler Handler, opts ...Option) *Queue {
	defaults.MustSet(&cfg)
	q := &Queue{
		cfg:        cfg,
		handler:    handler,
		log:        log.WithField("component", "worker"),
		tasks:      make([]Task, 0, min(cfg.Capacity, 64)),
		wake:       make(chan struct{}, 1),
		closing:    make(chan struct{}),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

func (q *Queue) State() State {
	return State(q.state.Load())
}

// Terminating is checked by long running handlers between steps.
func (q *Queue) Terminating() bool {
	return q.terminating.Load()
}

// Closing is closed as soon as Terminate is called.
func (q *Queue) Closing() <-chan struct{} {
	return q.closing
}

// Enqueue adds t. A collapsible task is not added when an equal one is pending.
// It reports whether t was added.
func (q *Queue) Enqueue(t Task) bool {
	if q.terminating.Load() {
		return false
	}
	q.mu.Lock()
	if t.Collapsible && slices.ContainsFunc(q.tasks, t.Equal) {
		q.mu.Unlock()
		metrics.TasksTotal.WithLabelValues(t.Type.String(), "collapsed").Inc()
		return false
	}
	if len(q.tasks) >= q.cfg.Capacity {
		dropped := q.tasks[0]
		q.tasks = slices.Delete(q.tasks, 0, 1)
		metrics.TasksTotal.WithLabelValues(dropped.Type.String(), "dropped").Inc()
		q.log.WithField("task", dropped).Debug("queue full, dropped oldest task")
	}
	q.seq++
	t.seq = q.seq
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()

	metrics.TasksTotal.WithLabelValues(t.Type.String(), "queued").Inc()
	q.signal()
	return true
}

// Drop removes the pending tasks of type tt and returns how many there were.
func (q *Queue) Drop(tt TaskType) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	q.tasks = slices.DeleteFunc(q.tasks, func(t Task) bool { return t.Type == tt })
	return n - len(q.tasks)
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return Task{}, false
	}
	best := 0
	for i := 1; i < len(q.tasks); i++ {
		if q.tasks[i].before(q.tasks[best]) {
			best = i
		}
	}
	task := q.tasks[best]
	q.tasks = slices.Delete(q.tasks, best, best+1)
	if task.Collapsible {
		q.tasks = slices.DeleteFunc(q.tasks, task.Equal)
	}
	return task, true
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer func() {
		if q.onClose != nil {
			q.safely("close hook", q.onClose)
		}
		q.state.Store(int32(StateTerminated))
		close(q.terminated)
	}()
	for range q.wake {
		if q.terminating.Load() {
			return
		}
		q.drain()
		if q.terminating.Load() {
			return
		}
	}
}

func (q *Queue) drain() {
	q.state.CompareAndSwap(int32(StateIdle), int32(StateDraining))
	defer q.state.CompareAndSwap(int32(StateDraining), int32(StateIdle))
	for !q.terminating.Load() {
		task, ok := q.pop()
		if !ok {
			return
		}
		q.dispatch(task)
	}
}

func (q *Queue) dispatch(task Task) {
	outcome := "failed"
	defer func() {
		metrics.TasksTotal.WithLabelValues(task.Type.String(), outcome).Inc()
	}()
	q.safely(task.String(), func() {
		if err := q.handler.Handle(task); err != nil {
			q.log.WithError(err).WithField("task", task).Warn("task failed")
			return
		}
		outcome = "done"
	})
}

// safely runs f, logging instead of propagating a panic.
func (q *Queue) safely(what string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("task", what).Errorf("recovered from panic: %v", r)
		}
	}()
	f()
}

// Terminate stops the consumer after the task it is running, pending tasks are
// discarded. It waits JoinRetries times JoinInterval for the consumer to finish,
// waking it again on every retry. Calling it from a handler will time out.
func (q *Queue) Terminate() error {
	q.closingOnce.Do(func() {
		q.terminating.Store(true)
		q.state.Store(int32(StateTerminating))
		close(q.closing)
	})
	for i := 0; i < q.cfg.JoinRetries; i++ {
		q.signal()
		select {
		case <-q.terminated:
			return nil
		case <-time.After(q.cfg.JoinInterval):
		}
	}
	return ErrJoinTimeout
}
