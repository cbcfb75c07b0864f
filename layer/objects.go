package layer

import (
	"sync"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/mapslicehelp"
	"github.com/pdok/gridmap/processing"
	"github.com/pdok/gridmap/spatial"
)

// objects is a tree together with the rows it indexes, guarded by one lock.
type objects[T processing.Row] struct {
	mu     sync.RWMutex
	powers []spatial.Power
	tree   *spatial.Tree
	rows   map[int]T
}

func newObjects[T processing.Row](powers ...spatial.Power) *objects[T] {
	return &objects[T]{powers: powers, tree: spatial.NewTree(powers...), rows: make(map[int]T)}
}

func record[T processing.Row](row T) spatial.Record {
	return spatial.Record{ID: row.RowID(), Geometry: row.Geometry(), Payload: row}
}

// reload builds a new tree from source and swaps it in. Duplicate ids are
// resolved before the rows fan out, so the workers insert into the tree
// concurrently.
func (o *objects[T]) reload(source processing.Source, workers int) int {
	tree := spatial.NewTree(o.powers...)
	rows := make(map[int]T)
	if source != nil {
		unique := processing.Unique(source)
		for _, r := range unique {
			if row, ok := r.(T); ok && row.Geometry() != nil {
				rows[row.RowID()] = row
			}
		}
		processing.Load(unique, tree, workers)
	}
	o.mu.Lock()
	o.tree, o.rows = tree, rows
	o.mu.Unlock()
	return len(rows)
}

func (o *objects[T]) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tree = spatial.NewTree(o.powers...)
	o.rows = make(map[int]T)
}

// merge inserts rows, replacing those with the same id.
func (o *objects[T]) merge(rows []T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, row := range rows {
		if old, ok := o.rows[row.RowID()]; ok {
			o.tree.Delete(record(old))
		}
		o.rows[row.RowID()] = row
		o.tree.Insert(record(row))
	}
}

func (o *objects[T]) remove(id int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	row, ok := o.rows[id]
	if !ok {
		return false
	}
	delete(o.rows, id)
	o.tree.Delete(record(row))
	return true
}

func (o *objects[T]) get(id int) (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	row, ok := o.rows[id]
	return row, ok
}

func (o *objects[T]) len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.rows)
}

func (o *objects[T]) stats() spatial.Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tree.Stats()
}

// query returns the rows touching r ordered by id.
func (o *objects[T]) query(r geo.Rectangle) []T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.tree.NodeCount() == 0 {
		return nil
	}
	return payloads[T](o.tree.Query(r).Sorted())
}

// nearest returns the rows within tolerance metres of pt, closest first.
func (o *objects[T]) nearest(pt geo.Coordinate, tolerance float64) []spatial.Hit {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.tree.NodeCount() == 0 {
		return nil
	}
	return o.tree.Nearest(pt, tolerance).RankByDistance(pt)
}

func (o *objects[T]) all() []T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rows := make([]T, 0, len(o.rows))
	for _, id := range mapslicehelp.SortedKeys(o.rows) {
		rows = append(rows, o.rows[id])
	}
	return rows
}

func payloads[T processing.Row](records []spatial.Record) []T {
	rows := make([]T, len(records))
	for i := range records {
		rows[i] = records[i].Payload.(T)
	}
	return rows
}
