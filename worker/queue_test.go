package worker

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blocker = "blocker"

// recorder keeps the tasks it handled. The task keyed blocker holds the
// consumer until release is called.
type recorder struct {
	mu      sync.Mutex
	tasks   []Task
	started chan struct{}
	gate    chan struct{}
	handle  func(Task) error
}

func (r *recorder) Handle(t Task) error {
	if t.Key == blocker {
		close(r.started)
		<-r.gate
		return nil
	}
	r.mu.Lock()
	r.tasks = append(r.tasks, t)
	r.mu.Unlock()
	if r.handle != nil {
		return r.handle(t)
	}
	return nil
}

func (r *recorder) release() {
	close(r.gate)
}

func (r *recorder) handled() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

func startBlocked(t *testing.T, cfg Config, opts ...Option) (*Queue, *recorder) {
	rec := &recorder{started: make(chan struct{}), gate: make(chan struct{})}
	q := New(cfg, rec, opts...)
	require.True(t, q.Enqueue(Task{Type: AddObject, Priority: Critical, Key: blocker}))
	<-rec.started
	require.Equal(t, StateDraining, q.State())
	return q, rec
}

func waitIdle(t *testing.T, q *Queue) {
	require.Eventually(t, func() bool {
		return q.Pending() == 0 && q.State() == StateIdle
	}, 2*time.Second, 5*time.Millisecond)
}

func types(tasks []Task) []TaskType {
	tt := make([]TaskType, len(tasks))
	for i := range tasks {
		tt[i] = tasks[i].Type
	}
	return tt
}

func priorities(tasks []Task) []Priority {
	ps := make([]Priority, len(tasks))
	for i := range tasks {
		ps[i] = tasks[i].Priority
	}
	return ps
}

func TestQueue_priorityOrder(t *testing.T) {
	q, rec := startBlocked(t, Config{})
	defer q.Terminate()

	q.Enqueue(Task{Type: DownloadImage, Priority: Low, Key: 1})
	q.Enqueue(Task{Type: DownloadImage, Priority: Critical, Key: 2})
	q.Enqueue(Task{Type: DownloadImage, Priority: Normal, Key: 3})
	rec.release()
	waitIdle(t, q)

	assert.Equal(t, []Priority{Critical, Normal, Low}, priorities(rec.handled()))
}

func TestQueue_tieBreak(t *testing.T) {
	q, rec := startBlocked(t, Config{})
	defer q.Terminate()

	q.Enqueue(Task{Type: DrawImage, Priority: Low, Key: 1})
	q.Enqueue(Task{Type: DownloadImage, Priority: Low, Key: 2})
	q.Enqueue(Task{Type: DrawImage, Priority: Low, Key: 3})
	q.Enqueue(Task{Type: RedrawLayer, Priority: Low})
	rec.release()
	waitIdle(t, q)

	handled := rec.handled()
	assert.Equal(t, []TaskType{RedrawLayer, DownloadImage, DrawImage, DrawImage}, types(handled))
	assert.Equal(t, 1, handled[2].Key)
	assert.Equal(t, 3, handled[3].Key)
}

func TestQueue_nonIncreasingPriority(t *testing.T) {
	q, rec := startBlocked(t, Config{})
	defer q.Terminate()

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		q.Enqueue(Task{
			Type:     TaskType(1 + r.Intn(5)),
			Priority: Priority(r.Intn(7)),
			Key:      i,
		})
	}
	rec.release()
	waitIdle(t, q)

	handled := rec.handled()
	require.Len(t, handled, 300)
	for i := 1; i < len(handled); i++ {
		assert.GreaterOrEqual(t, handled[i-1].Priority, handled[i].Priority)
	}
}

func TestQueue_collapsible(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
		want  int
	}{
		{
			name: "same type and key",
			tasks: []Task{
				{Type: DownloadImage, Priority: Idle, Collapsible: true, Key: "3/1/2"},
				{Type: DownloadImage, Priority: Idle, Collapsible: true, Key: "3/1/2"},
			},
			want: 1,
		},
		{
			name: "same type without key",
			tasks: []Task{
				{Type: RedrawLayer, Priority: BelowNormal, Collapsible: true},
				{Type: RedrawLayer, Priority: BelowNormal, Collapsible: true},
				{Type: RedrawLayer, Priority: BelowNormal, Collapsible: true},
			},
			want: 1,
		},
		{
			name: "different keys",
			tasks: []Task{
				{Type: DownloadImage, Priority: Idle, Collapsible: true, Key: "3/1/2"},
				{Type: DownloadImage, Priority: Idle, Collapsible: true, Key: "3/2/2"},
			},
			want: 2,
		},
		{
			name: "not collapsible",
			tasks: []Task{
				{Type: DrawImage, Priority: Low, Key: "3/1/2"},
				{Type: DrawImage, Priority: Low, Key: "3/1/2"},
			},
			want: 2,
		},
		{
			name: "collapsible popped first takes the plain ones along",
			tasks: []Task{
				{Type: ReloadData, Priority: Normal},
				{Type: ReloadData, Priority: High, Collapsible: true},
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, rec := startBlocked(t, Config{})
			defer q.Terminate()
			for _, task := range tt.tasks {
				q.Enqueue(task)
			}
			rec.release()
			waitIdle(t, q)
			assert.Len(t, rec.handled(), tt.want)
		})
	}
}

func TestQueue_capacity(t *testing.T) {
	q, rec := startBlocked(t, Config{Capacity: 3})
	defer q.Terminate()

	for i := 0; i < 5; i++ {
		assert.True(t, q.Enqueue(Task{Type: DrawImage, Priority: Low, Key: i}))
		assert.LessOrEqual(t, q.Pending(), 3)
	}
	assert.Equal(t, 3, q.Pending())
	rec.release()
	waitIdle(t, q)

	keys := []any{}
	for _, task := range rec.handled() {
		keys = append(keys, task.Key)
	}
	assert.Equal(t, []any{2, 3, 4}, keys)
}

func TestQueue_Drop(t *testing.T) {
	q, rec := startBlocked(t, Config{})
	defer q.Terminate()

	q.Enqueue(Task{Type: DownloadImage, Priority: Idle, Key: 1})
	q.Enqueue(Task{Type: RedrawLayer, Priority: BelowNormal})
	q.Enqueue(Task{Type: DownloadImage, Priority: Idle, Key: 2})
	assert.Equal(t, 2, q.Drop(DownloadImage))
	assert.Equal(t, 0, q.Drop(DownloadImage))
	rec.release()
	waitIdle(t, q)

	assert.Equal(t, []TaskType{RedrawLayer}, types(rec.handled()))
}

func TestQueue_handlerFailures(t *testing.T) {
	var calls atomic.Int32
	q := New(Config{}, HandlerFunc(func(task Task) error {
		calls.Add(1)
		switch task.Key {
		case "panic":
			panic("boom")
		case "error":
			return errors.New("failed")
		}
		return nil
	}))
	defer q.Terminate()

	q.Enqueue(Task{Type: DrawImage, Key: "panic"})
	q.Enqueue(Task{Type: DrawImage, Key: "error"})
	q.Enqueue(Task{Type: DrawImage, Key: "fine"})
	require.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	waitIdle(t, q)
}

func TestQueue_Terminate(t *testing.T) {
	var closed atomic.Bool
	q, rec := startBlocked(t, Config{JoinRetries: 2, JoinInterval: 10 * time.Millisecond}, WithOnClose(func() {
		closed.Store(true)
	}))
	q.Enqueue(Task{Type: DrawImage, Key: 1})
	d := NewDispatcher[int](q, 1)
	require.True(t, d.Post(1))
	assert.Equal(t, 1, <-d.C())

	// the consumer is stuck in the blocker
	assert.ErrorIs(t, q.Terminate(), ErrJoinTimeout)
	assert.Equal(t, StateTerminating, q.State())
	assert.True(t, q.Terminating())
	assert.False(t, q.Enqueue(Task{Type: DrawImage, Key: 2}))
	assert.False(t, d.Post(2))

	rec.release()
	require.Eventually(t, func() bool { return q.Terminate() == nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateTerminated, q.State())
	assert.True(t, closed.Load())
	// pending work is discarded on termination
	assert.Empty(t, rec.handled())
}

func TestDispatcher_unblocksOnTerminate(t *testing.T) {
	q := New(Config{}, HandlerFunc(func(Task) error { return nil }))
	d := NewDispatcher[string](q, 0)
	posted := make(chan bool)
	go func() {
		posted <- d.Post("nobody listens")
	}()
	require.NoError(t, q.Terminate())
	assert.False(t, <-posted)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "BelowNormal", BelowNormal.String())
	assert.Equal(t, "DownloadImage", DownloadImage.String())
	assert.Equal(t, "Terminated", StateTerminated.String())
	assert.Equal(t, "DrawImage(3/1/2)@Low", Task{Type: DrawImage, Priority: Low, Key: "3/1/2"}.String())
	assert.Equal(t, "RedrawLayer@BelowNormal", Task{Type: RedrawLayer, Priority: BelowNormal}.String())
}
