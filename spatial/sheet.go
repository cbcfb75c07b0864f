package spatial

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/geomhelp"
	"github.com/pdok/gridmap/mapslicehelp"
	"github.com/pdok/gridmap/tile"
	"github.com/umpc/go-sortedmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const wktMaxLen = 120

type action int

const (
	insertAction action = iota
	deleteAction
)

// Sheet is a node of the tree covering one tile block. Interior sheets route to
// their children by block, bottom sheets hold the records.
//
// Only a sheet's own lock is held while working on it. A sheet that became empty
// is first marked detached under its own lock and only then unlinked by its
// parent, descents that run into a detached sheet go back up and retry.
type Sheet struct {
	tree   *Tree
	depth  int
	zoom   int
	block  tile.Block
	bounds geo.Rectangle

	mu       sync.RWMutex
	children *sortedmap.SortedMap // tile.Block -> *Sheet
	content  *orderedmap.OrderedMap[int, Record]
	detached atomic.Bool
}

func (s *Sheet) isBottom() bool {
	return s.depth >= len(s.tree.powers)
}

func (s *Sheet) childZoom() int {
	return s.zoom + s.tree.powers[s.depth].LevelSkip()
}

func (s *Sheet) emptyLocked() bool {
	return (s.children == nil || len(s.children.Map()) == 0) && (s.content == nil || s.content.Len() == 0)
}

// apply inserts or deletes r below s. ok is false when s turned out to be
// detached, changed reports whether any bottom sheet gained or lost r.ID.
func (s *Sheet) apply(r Record, a action) (ok, changed bool) {
	if s.isBottom() {
		return s.applyContent(r, a)
	}
	for _, b := range s.targets(r.Geometry) {
		childOK, childChanged := s.applyChild(b, r, a)
		if !childOK {
			return false, changed
		}
		changed = changed || childChanged
	}
	return true, changed
}

func (s *Sheet) applyContent(r Record, a action) (ok, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached.Load() {
		return false, false
	}
	if s.content == nil {
		s.content = orderedmap.New[int, Record]()
	}
	switch a {
	case insertAction:
		_, present := s.content.Set(r.ID, r)
		return true, !present
	case deleteAction:
		_, present := s.content.Delete(r.ID)
		return true, present
	}
	return true, false
}

func (s *Sheet) applyChild(b tile.Block, r Record, a action) (bool, bool) {
	for {
		child, ok := s.child(b, a == insertAction)
		if !ok {
			return false, false
		}
		if child == nil {
			return true, false
		}
		if childOK, changed := child.apply(r, a); childOK {
			if a == deleteAction {
				s.prune(b, child)
			}
			return true, changed
		}
	}
}

// child looks up the sheet for b, creating it when asked to. A detached child
// found on the way is unlinked. ok is false when s itself is detached.
func (s *Sheet) child(b tile.Block, create bool) (child *Sheet, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached.Load() {
		return nil, false
	}
	if s.children == nil {
		if !create {
			return nil, true
		}
		s.children = sortedmap.New(4, func(x, y interface{}) bool {
			return x.(*Sheet).block.Compare(y.(*Sheet).block) < 0
		})
	}
	if v, found := s.children.Map()[b]; found {
		c := v.(*Sheet)
		if !c.detached.Load() {
			return c, true
		}
		s.children.Delete(b)
		s.tree.branchRemoved(c.depth)
	}
	if !create {
		return nil, true
	}
	c := s.tree.newSheet(s.depth+1, s.childZoom(), b)
	s.children.Insert(b, c)
	s.tree.branchAdded(c.depth)
	return c, true
}

func (s *Sheet) prune(b tile.Block, c *Sheet) {
	c.mu.Lock()
	empty := c.emptyLocked()
	if empty {
		c.detached.Store(true)
	}
	c.mu.Unlock()
	if !empty {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.children == nil {
		return
	}
	if v, found := s.children.Map()[b]; found && v.(*Sheet) == c {
		s.children.Delete(b)
		s.tree.branchRemoved(c.depth)
	}
}

// targets lists the child blocks g has to go to.
func (s *Sheet) targets(g Geometry) []tile.Block {
	zoom := s.childZoom()
	var blocks []tile.Block
	collect := func(br tile.BlockRange, touches func(geo.Rectangle) bool) {
		br.Each(func(b tile.Block) bool {
			if touches == nil || touches(b.Bounds()) {
				blocks = append(blocks, b)
			}
			return true
		})
	}
	switch g := g.(type) {
	case Point:
		collect(tile.RectOf(g.Bounds(), zoom).Blocks(), nil)
	case Line:
		collect(tile.RectOf(g.Segment, zoom).Blocks(), func(bounds geo.Rectangle) bool {
			return bounds.LineContains(g.Segment) != geo.None
		})
	case Rectangle:
		collect(tile.RectOf(g.Box, zoom).Blocks(), nil)
	case Polygon:
		collect(tile.PolygonRect(g.Ring, zoom).Blocks(), func(bounds geo.Rectangle) bool {
			return bounds.PolygonContains(g.Ring) != geo.None
		})
	default:
		panic(unknownGeometry(g))
	}
	return blocks
}

// snapshot returns the children in block order.
func (s *Sheet) snapshot() []*Sheet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.children == nil {
		return nil
	}
	m := s.children.Map()
	sheets := make([]*Sheet, 0, len(m))
	for _, k := range s.children.Keys() {
		sheets = append(sheets, m[k].(*Sheet))
	}
	return sheets
}

func (s *Sheet) records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.content == nil {
		return nil
	}
	return mapslicehelp.OrderedMapValues(s.content)
}

func (s *Sheet) query(q geo.Rectangle, parent geo.Intersect, res RecordSet, iterations *int) {
	if s.isBottom() {
		for _, r := range s.records() {
			if parent == geo.Supersets || matches(q, r.Geometry) {
				res[r.ID] = r
			}
		}
		return
	}
	for _, c := range s.snapshot() {
		result := geo.Supersets
		if parent != geo.Supersets {
			*iterations++
			result = c.bounds.RectangleContains(q)
		}
		if result == geo.None {
			continue
		}
		c.query(q, result, res, iterations)
		if result == geo.Contains {
			break
		}
	}
}

func (s *Sheet) nearest(pt geo.Coordinate, variance float64, res RecordSet, iterations *int) {
	if s.isBottom() {
		for _, r := range s.records() {
			if d := Distance(pt, r.Geometry); d >= 0 && d <= variance {
				res[r.ID] = r
			}
		}
		return
	}
	for _, c := range s.snapshot() {
		*iterations++
		if c.bounds.Distance(pt) <= variance {
			c.nearest(pt, variance, res, iterations)
		}
	}
}

func (s *Sheet) toWkt(w io.Writer) {
	if s.depth > 0 {
		_ = wkt.Encode(w, s.bounds.ToGeomExtent())
		_, _ = fmt.Fprintln(w)
	}
	if s.isBottom() {
		for _, r := range s.records() {
			_, _ = fmt.Fprintln(w, geomhelp.WktMustEncode(r.Geometry.Geom(), wktMaxLen))
		}
		return
	}
	for _, c := range s.snapshot() {
		c.toWkt(w)
	}
}
