package processing

import (
	"github.com/pdok/gridmap/spatial"
)

// Row is one domain row, it only needs to tell its id and geometry.
type Row interface {
	RowID() int
	Geometry() spatial.Geometry
}

type Source interface {
	// ReadRows sends all rows and closes the channel.
	ReadRows(chan<- Row)
}

type Target interface {
	Insert(spatial.Record)
}
