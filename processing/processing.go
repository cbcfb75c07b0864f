// Package processing takes care of the logistics around reading rows from a Source
// and loading them into a Target, such as a spatial.Tree.
package processing

import (
	"runtime"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/mapslicehelp"
	"github.com/pdok/gridmap/spatial"
)

// readRows reads the rows from the given source
func readRows(source Source, rows chan<- Row) {
	source.ReadRows(rows)
}

// insertRows wraps the rows into records and inserts them into the target
func insertRows(rows <-chan Row, target Target, skipped, inserted *atomic.Uint64) {
	for {
		row, hasMore := <-rows
		if !hasMore {
			break
		}
		geometry := row.Geometry()
		if geometry == nil {
			skipped.Add(1)
			continue
		}
		target.Insert(spatial.Record{ID: row.RowID(), Geometry: geometry, Payload: row})
		inserted.Add(1)
	}
}

// Load reads all rows of source and inserts them into target with the given
// number of workers, all CPUs when workers < 1. It returns the number of rows inserted.
func Load(source Source, target Target, workers int) int {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	rows := make(chan Row, workers)
	var skipped, inserted atomic.Uint64

	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			insertRows(rows, target, &skipped, &inserted)
		}()
	}
	go readRows(source, rows)
	wg.Wait()

	logger := log.WithField("component", "processing")
	logger.Debugf("    total rows: %d", inserted.Load()+skipped.Load())
	if skipped.Load() > 0 {
		logger.Warnf("  without geometry: %d", skipped.Load())
	}
	logger.Debugf("      inserted: %d", inserted.Load())
	return int(inserted.Load())
}

// SliceSource serves rows from memory.
type SliceSource []Row

func (s SliceSource) ReadRows(rows chan<- Row) {
	for _, row := range s {
		rows <- row
	}
	close(rows)
}

// Unique reads all rows of source. Of rows sharing an id the last one read is
// kept. The result is ordered by id.
func Unique(source Source) SliceSource {
	byID := make(map[int]Row)
	in := make(chan Row)
	go source.ReadRows(in)
	for row := range in {
		byID[row.RowID()] = row
	}
	unique := make(SliceSource, 0, len(byID))
	for _, id := range mapslicehelp.SortedKeys(byID) {
		unique = append(unique, byID[id])
	}
	return unique
}

// Convert serves the rows of source passed through fn, dropping those fn maps to nil.
func Convert(source Source, fn func(Row) Row) Source {
	return converted{source: source, fn: fn}
}

type converted struct {
	source Source
	fn     func(Row) Row
}

func (c converted) ReadRows(rows chan<- Row) {
	in := make(chan Row)
	go c.source.ReadRows(in)
	for row := range in {
		if out := c.fn(row); out != nil {
			rows <- out
		}
	}
	close(rows)
}
