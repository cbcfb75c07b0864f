// Package spatial is a grid index over points, lines, rectangles and polygons.
//
// The tree has a fixed number of levels below a virtual root. Every level splits
// the blocks of its parent into Power child blocks, which is the same as going
// down Power.LevelSkip zoom levels in the tile grid. Sheets are created lazily on
// insert and pruned once a delete leaves them empty.
package spatial

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/tile"
	log "github.com/sirupsen/logrus"
)

// DefaultDepth is the number of levels of a tree created without powers.
const DefaultDepth = 4

const rootZoom = 1

type Tree struct {
	// mu is taken exclusively to swap the layout, the data operations share it
	mu         sync.RWMutex
	powers     []Power
	root       *Sheet
	nodeCount  atomic.Int64
	branches   []atomic.Int64
	iterations atomic.Int64
	log        *log.Entry
}

// Stats describes the shape of a tree, for tuning the powers.
type Stats struct {
	NodeCount int
	// Branches holds the number of live sheets per level, the first level below the root first.
	Branches []int
	// Iterations is the number of sheet tests the last Query or Nearest took.
	Iterations int
}

// NewTree creates a tree with one level per power, DefaultDepth levels of
// PowerMedium when none are given.
func NewTree(powers ...Power) *Tree {
	t := &Tree{log: log.WithField("component", "spatial")}
	t.layout(powers)
	return t
}

func (t *Tree) layout(powers []Power) {
	if len(powers) == 0 {
		powers = make([]Power, DefaultDepth)
		for i := range powers {
			powers[i] = PowerMedium
		}
	}
	t.powers = append([]Power(nil), powers...)
	t.branches = make([]atomic.Int64, len(powers))
	t.root = &Sheet{tree: t, depth: 0, zoom: rootZoom, bounds: geo.World}
}

// Configure replaces the powers of an empty tree. Once records have been
// inserted it does nothing and returns false.
func (t *Tree) Configure(powers ...Power) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nodeCount.Load() > 0 {
		return false
	}
	t.layout(powers)
	return true
}

func (t *Tree) Powers() []Power {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Power(nil), t.powers...)
}

// BottomZoom is the zoom level of the blocks of the bottom sheets.
func (t *Tree) BottomZoom() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	zoom := rootZoom
	for _, p := range t.powers {
		zoom += p.LevelSkip()
	}
	return zoom
}

func (t *Tree) NodeCount() int {
	return int(t.nodeCount.Load())
}

func (t *Tree) newSheet(depth, zoom int, b tile.Block) *Sheet {
	return &Sheet{tree: t, depth: depth, zoom: zoom, block: b, bounds: b.Bounds()}
}

func (t *Tree) branchAdded(depth int) {
	t.branches[depth-1].Add(1)
}

func (t *Tree) branchRemoved(depth int) {
	t.branches[depth-1].Add(-1)
}

// Insert adds r to every bottom sheet its geometry touches, replacing a record
// with the same id there. It panics on a nil or foreign geometry.
func (t *Tree) Insert(r Record) {
	if r.Geometry == nil {
		panic(unknownGeometry(nil))
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, added := t.root.apply(r, insertAction); added {
		t.nodeCount.Add(1)
	}
}

// Delete removes r, routed by its geometry, and prunes the sheets left empty.
// It reports whether the record was found.
func (t *Tree) Delete(r Record) bool {
	if r.Geometry == nil {
		panic(unknownGeometry(nil))
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, removed := t.root.apply(r, deleteAction)
	if removed {
		t.nodeCount.Add(-1)
	}
	return removed
}

// Query returns the records touching q.
func (t *Tree) Query(q geo.Rectangle) RecordSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make(RecordSet)
	iterations := 0
	t.root.query(q.Bounds(), geo.None, res, &iterations)
	t.iterations.Store(int64(iterations))
	t.log.WithFields(log.Fields{"iterations": iterations, "found": len(res)}).Trace("query")
	return res
}

// Nearest returns the records within variance metres of pt.
func (t *Tree) Nearest(pt geo.Coordinate, variance float64) RecordSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make(RecordSet)
	iterations := 0
	t.root.nearest(pt, variance, res, &iterations)
	t.iterations.Store(int64(iterations))
	t.log.WithFields(log.Fields{"iterations": iterations, "found": len(res)}).Trace("nearest")
	return res
}

// Clear drops all sheets and records. The powers are kept, but can be
// configured again afterwards.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layout(t.powers)
	t.nodeCount.Store(0)
	t.iterations.Store(0)
}

func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	branches := make([]int, len(t.branches))
	for i := range t.branches {
		branches[i] = int(t.branches[i].Load())
	}
	return Stats{
		NodeCount:  t.NodeCount(),
		Branches:   branches,
		Iterations: int(t.iterations.Load()),
	}
}

// ToWkt writes the sheet bounds and the records as WKT, one per line. For debugging/visualising.
func (t *Tree) ToWkt(w io.Writer) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.root.toWkt(w)
}
