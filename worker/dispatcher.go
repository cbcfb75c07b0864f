package worker

// Dispatcher hands results from handlers to whoever owns the surface they are
// meant for, by way of a channel the owner drains.
type Dispatcher[T any] struct {
	ch   chan T
	done <-chan struct{}
}

// NewDispatcher creates a dispatcher that stops accepting posts once q terminates.
func NewDispatcher[T any](q *Queue, size int) *Dispatcher[T] {
	return &Dispatcher[T]{ch: make(chan T, size), done: q.Closing()}
}

// Post blocks until v is taken or buffered. It gives up, returning false, when
// the queue is terminating.
func (d *Dispatcher[T]) Post(v T) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.ch <- v:
		return true
	case <-d.done:
		return false
	}
}

func (d *Dispatcher[T]) C() <-chan T {
	return d.ch
}
