package layer

import (
	"fmt"
	"image"

	"github.com/pdok/gridmap/tile"
	"github.com/pdok/gridmap/tilecache"
	"github.com/pdok/gridmap/worker"
)

// TileEvent hands a tile image to whoever draws the map. A placeholder event
// marks a tile that is being downloaded, its Image is blank.
type TileEvent struct {
	Block       tile.Block
	Image       image.Image
	Placeholder bool
}

// MapLayer shows the background tiles of its view. A redraw posts the cached
// tiles and queues downloads for the others, which are posted once they arrive.
type MapLayer struct {
	base
	cache       *tilecache.Cache
	fetcher     *tilecache.Fetcher
	events      *worker.Dispatcher[TileEvent]
	placeholder image.Image
}

func NewMapLayer(view View, cache *tilecache.Cache, fetcher *tilecache.Fetcher, cfg worker.Config) *MapLayer {
	m := &MapLayer{
		cache:       cache,
		fetcher:     fetcher,
		placeholder: image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size)),
	}
	m.moved = func() { m.queue.Drop(worker.DownloadImage) }
	m.init("maplayer", view, cfg, m)
	m.events = worker.NewDispatcher[TileEvent](m.queue, 64)
	return m
}

func (m *MapLayer) Events() <-chan TileEvent {
	return m.events.C()
}

func (m *MapLayer) Handle(t worker.Task) error {
	switch t.Type {
	case worker.RedrawLayer:
		m.redraw()
	case worker.DownloadImage:
		return m.download(t.Key.(tile.Block))
	case worker.DrawImage:
		m.draw(t.Key.(tile.Block))
	default:
		return fmt.Errorf("map layer cannot handle %v", t)
	}
	return nil
}

// redraw starts over as long as the view moves underneath it.
func (m *MapLayer) redraw() {
	for !m.drawImages(m.View()) {
		m.queue.Drop(worker.RedrawLayer)
	}
}

// drawImages reports false when the view changed before it got through all tiles.
func (m *MapLayer) drawImages(v View) bool {
	complete := true
	v.Blocks().Each(func(b tile.Block) bool {
		if img, ok := m.cache.Get(b); ok {
			m.events.Post(TileEvent{Block: b, Image: img})
		} else {
			m.events.Post(TileEvent{Block: b, Image: m.placeholder, Placeholder: true})
			m.queue.Enqueue(worker.Task{Type: worker.DownloadImage, Priority: worker.Idle, Collapsible: true, Key: b})
		}
		if m.queue.Terminating() {
			return false
		}
		if m.View() != v {
			complete = false
			return false
		}
		return true
	})
	return complete
}

func (m *MapLayer) download(b tile.Block) error {
	if _, ok := m.cache.Get(b); ok {
		return nil
	}
	img, err := m.fetcher.Fetch(m.ctx, b)
	if err != nil {
		return err
	}
	m.cache.Put(b, img)
	m.queue.Enqueue(worker.Task{Type: worker.DrawImage, Priority: worker.Low, Collapsible: true, Key: b})
	return nil
}

// draw posts b when it is still on screen.
func (m *MapLayer) draw(b tile.Block) {
	if m.queue.Terminating() {
		return
	}
	v := m.View()
	if b.Level != v.Level || !v.Blocks().Contains(b) {
		return
	}
	if img, ok := m.cache.Get(b); ok {
		m.events.Post(TileEvent{Block: b, Image: img})
	}
}

// Close stops the layer and empties its cache.
func (m *MapLayer) Close() error {
	err := m.base.Close()
	m.cache.Clear()
	return err
}
