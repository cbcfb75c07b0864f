// Package layer combines the index, the tile cache and a worker queue into the
// two map layers: MapLayer for background tiles and NetLayer for network objects.
// Layers do not draw, they post what is to be drawn on their event channel.
package layer

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/worker"
)

// base is what both layers share: the view and the queue running their tasks.
type base struct {
	mu    sync.RWMutex
	view  View
	queue *worker.Queue
	// moved runs on the caller's goroutine after the view changed
	moved func()

	ctx    context.Context
	cancel context.CancelFunc
	log    *log.Entry
}

func (l *base) init(name string, view View, cfg worker.Config, handler worker.Handler) {
	l.view = view.normalize()
	l.log = log.WithField("component", name)
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.queue = worker.New(cfg, handler, worker.WithLogger(l.log))
}

func (l *base) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.view
}

func (l *base) SetCenter(c geo.Coordinate) {
	l.move(func(v *View) { v.Center = c })
}

func (l *base) SetLevel(level int) {
	l.move(func(v *View) { v.Level = level })
}

func (l *base) Resize(width, height int) {
	l.move(func(v *View) { v.Width, v.Height = width, height })
}

func (l *base) move(change func(*View)) {
	l.mu.Lock()
	old := l.view
	change(&l.view)
	l.view = l.view.normalize()
	changed := l.view != old
	l.mu.Unlock()
	if !changed {
		return
	}
	if l.moved != nil {
		l.moved()
	}
	l.Update()
}

// Update asks for a redraw of the whole view. Requests pending at the same
// time are served by one redraw.
func (l *base) Update() bool {
	return l.queue.Enqueue(worker.Task{Type: worker.RedrawLayer, Priority: worker.BelowNormal, Collapsible: true})
}

func (l *base) Terminating() bool {
	return l.queue.Terminating()
}

// Close stops the queue, pending tasks are discarded.
func (l *base) Close() error {
	l.cancel()
	return l.queue.Terminate()
}
