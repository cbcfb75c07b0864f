package layer

import (
	"fmt"
	"sync"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/processing"
	"github.com/pdok/gridmap/spatial"
	"github.com/pdok/gridmap/worker"
)

var (
	VertexPowers   = []spatial.Power{spatial.PowerUltra, spatial.PowerExtra, spatial.PowerMedium, spatial.PowerLow}
	CablePowers    = []spatial.Power{spatial.PowerUltra, spatial.PowerHigh, spatial.PowerLow, spatial.PowerLow}
	BuildingPowers = []spatial.Power{spatial.PowerUltra, spatial.PowerExtra, spatial.PowerMedium, spatial.PowerLow}
)

type Vertex struct {
	ID      int
	At      geo.Coordinate
	Caption string
}

func (v Vertex) RowID() int                 { return v.ID }
func (v Vertex) Geometry() spatial.Geometry { return spatial.Point{At: v.At} }

// Cable runs in a straight line between the corners of Segment.
type Cable struct {
	ID      int
	Segment geo.Rectangle
	Caption string
	// Length in metres
	Length float64
}

func (c Cable) RowID() int                 { return c.ID }
func (c Cable) Geometry() spatial.Geometry { return spatial.Line{Segment: c.Segment} }

type Building struct {
	ID      int
	Box     geo.Rectangle
	Caption string
}

func (b Building) RowID() int                 { return b.ID }
func (b Building) Geometry() spatial.Geometry { return spatial.Rectangle{Box: b.Box} }

// FrameEvent lists the objects in view after a redraw.
type FrameEvent struct {
	View      View
	Vertices  []Vertex
	Cables    []Cable
	Buildings []Building
}

// DataSource feeds a reload. A nil source leaves its objects empty.
type DataSource struct {
	Vertices  processing.Source
	Cables    processing.Source
	Buildings processing.Source
}

// NetLayer holds the network objects in one index per kind. Every index has its
// own lock, a reload builds new indexes aside and swaps them in.
type NetLayer struct {
	base
	vertices  *objects[Vertex]
	cables    *objects[Cable]
	buildings *objects[Building]
	events    *worker.Dispatcher[FrameEvent]
	workers   int

	pendingMu sync.Mutex
	pending   *DataSource
}

// NetConfig sets up a NetLayer. Empty powers fall back to VertexPowers,
// CablePowers and BuildingPowers. Reloads insert with Workers goroutines per
// index, all CPUs when Workers < 1.
type NetConfig struct {
	Worker         worker.Config
	Workers        int
	VertexPowers   []spatial.Power
	CablePowers    []spatial.Power
	BuildingPowers []spatial.Power
}

func orDefault(powers, def []spatial.Power) []spatial.Power {
	if len(powers) == 0 {
		return def
	}
	return powers
}

// NewNetLayer starts an empty layer.
func NewNetLayer(view View, cfg NetConfig) *NetLayer {
	n := &NetLayer{
		vertices:  newObjects[Vertex](orDefault(cfg.VertexPowers, VertexPowers)...),
		cables:    newObjects[Cable](orDefault(cfg.CablePowers, CablePowers)...),
		buildings: newObjects[Building](orDefault(cfg.BuildingPowers, BuildingPowers)...),
		workers:   cfg.Workers,
	}
	n.init("netlayer", view, cfg.Worker, n)
	n.events = worker.NewDispatcher[FrameEvent](n.queue, 16)
	return n
}

func (n *NetLayer) Events() <-chan FrameEvent {
	return n.events.C()
}

func (n *NetLayer) Handle(t worker.Task) error {
	switch t.Type {
	case worker.RedrawLayer:
		n.events.Post(n.Visible())
	case worker.ReloadData:
		n.reload()
	default:
		return fmt.Errorf("net layer cannot handle %v", t)
	}
	return nil
}

// Reload replaces all objects with those of src in the background. Only the
// last of several reloads requested in a row is carried out.
func (n *NetLayer) Reload(src DataSource) bool {
	n.pendingMu.Lock()
	n.pending = &src
	n.pendingMu.Unlock()
	return n.queue.Enqueue(worker.Task{Type: worker.ReloadData, Priority: worker.Normal, Collapsible: true})
}

func (n *NetLayer) reload() {
	n.pendingMu.Lock()
	src := n.pending
	n.pending = nil
	n.pendingMu.Unlock()
	if src == nil {
		return
	}
	var wg sync.WaitGroup
	var vertices, cables, buildings int
	wg.Add(3)
	go func() { defer wg.Done(); vertices = n.vertices.reload(src.Vertices, n.workers) }()
	go func() { defer wg.Done(); cables = n.cables.reload(src.Cables, n.workers) }()
	go func() { defer wg.Done(); buildings = n.buildings.reload(src.Buildings, n.workers) }()
	wg.Wait()
	n.log.WithField("vertices", vertices).WithField("cables", cables).WithField("buildings", buildings).Info("reloaded network")
	n.Update()
}

// Clear removes all objects.
func (n *NetLayer) Clear() {
	n.vertices.clear()
	n.cables.clear()
	n.buildings.clear()
	n.Update()
}

// Merge adds or replaces objects of every kind and redraws once.
func (n *NetLayer) Merge(vertices []Vertex, cables []Cable, buildings []Building) {
	n.vertices.merge(vertices)
	n.cables.merge(cables)
	n.buildings.merge(buildings)
	n.Update()
}

func (n *NetLayer) MergeVertices(vertices ...Vertex) {
	n.vertices.merge(vertices)
	n.Update()
}

func (n *NetLayer) MergeCables(cables ...Cable) {
	n.cables.merge(cables)
	n.Update()
}

func (n *NetLayer) MergeBuildings(buildings ...Building) {
	n.buildings.merge(buildings)
	n.Update()
}

func (n *NetLayer) RemoveVertex(id int) bool {
	return n.removed(n.vertices.remove(id))
}

func (n *NetLayer) RemoveCable(id int) bool {
	return n.removed(n.cables.remove(id))
}

func (n *NetLayer) RemoveBuilding(id int) bool {
	return n.removed(n.buildings.remove(id))
}

func (n *NetLayer) removed(ok bool) bool {
	if ok {
		n.Update()
	}
	return ok
}

func (n *NetLayer) Vertex(id int) (Vertex, bool)     { return n.vertices.get(id) }
func (n *NetLayer) Cable(id int) (Cable, bool)       { return n.cables.get(id) }
func (n *NetLayer) Building(id int) (Building, bool) { return n.buildings.get(id) }

func (n *NetLayer) Vertices() []Vertex { return n.vertices.all() }
func (n *NetLayer) Cables() []Cable    { return n.cables.all() }

// Counts returns the number of vertices, cables and buildings.
func (n *NetLayer) Counts() (vertices, cables, buildings int) {
	return n.vertices.len(), n.cables.len(), n.buildings.len()
}

// Stats returns the shape of the vertex, cable and building index.
func (n *NetLayer) Stats() (vertices, cables, buildings spatial.Stats) {
	return n.vertices.stats(), n.cables.stats(), n.buildings.stats()
}

// VertexRadius is the half size in pixels a vertex is drawn with at level.
func VertexRadius(level int) float64 {
	switch {
	case level <= 14:
		return 4
	case level > 16:
		return 12
	}
	return 8
}

// FindNearestVertex returns the vertices within px pixels of pt, closest first.
func (n *NetLayer) FindNearestVertex(pt geo.Coordinate, px float64) []spatial.Hit {
	return n.vertices.nearest(pt, n.View().Tolerance(px))
}

// FindNearestCable returns the cables within px pixels of pt, closest first.
func (n *NetLayer) FindNearestCable(pt geo.Coordinate, px float64) []spatial.Hit {
	return n.cables.nearest(pt, n.View().Tolerance(px))
}

// Visible returns the objects in the current view.
func (n *NetLayer) Visible() FrameEvent {
	v := n.View()
	bounds := v.Bounds()
	return FrameEvent{
		View:      v,
		Vertices:  n.vertices.query(bounds),
		Cables:    n.cables.query(bounds),
		Buildings: n.buildings.query(bounds),
	}
}
