package layer

import (
	"errors"
	"fmt"

	"github.com/go-spatial/geom"
	gogpkg "github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/gpkg"
	"github.com/pdok/gridmap/processing"
)

// Feature tables of a network GeoPackage.
const (
	VerticesTable  = "vertices"
	CablesTable    = "cables"
	BuildingsTable = "buildings"
)

var fid = gpkg.Column{Name: "fid", Type: "INTEGER", NotNull: true, PK: true}

// ReadGeoPackage returns a DataSource over the network tables of g. Missing
// tables leave their objects empty, features of the wrong geometry type are skipped.
func ReadGeoPackage(g *gpkg.GeoPackage) (DataSource, error) {
	var src DataSource
	for name, convert := range map[string]func(gpkg.Feature) processing.Row{
		VerticesTable:  vertexOf,
		CablesTable:    cableOf,
		BuildingsTable: buildingOf,
	} {
		convert := convert
		t, err := g.Table(name)
		if errors.Is(err, gpkg.ErrNoTable) {
			continue
		}
		if err != nil {
			return DataSource{}, err
		}
		s := processing.Convert(g.Source(t), func(r processing.Row) processing.Row {
			return convert(r.(gpkg.Feature))
		})
		switch name {
		case VerticesTable:
			src.Vertices = s
		case CablesTable:
			src.Cables = s
		case BuildingsTable:
			src.Buildings = s
		}
	}
	return src, nil
}

func vertexOf(f gpkg.Feature) processing.Row {
	p, ok := f.Geom.(geom.Point)
	if !ok {
		return nil
	}
	return Vertex{ID: f.RowID(), At: geo.NewCoordinate(p[0], p[1]), Caption: f.String("caption")}
}

func cableOf(f gpkg.Feature) processing.Row {
	ls, ok := f.Geom.(geom.LineString)
	if !ok || len(ls) != 2 {
		return nil
	}
	segment := geo.Segment(geo.NewCoordinate(ls[0][0], ls[0][1]), geo.NewCoordinate(ls[1][0], ls[1][1]))
	length := f.Float("length")
	if length == 0 {
		length = segment.LineLength()
	}
	return Cable{ID: f.RowID(), Segment: segment, Caption: f.String("caption"), Length: length}
}

func buildingOf(f gpkg.Feature) processing.Row {
	if f.Geom == nil {
		return nil
	}
	ext, err := geom.NewExtentFromGeometry(f.Geom)
	if err != nil {
		return nil
	}
	return Building{ID: f.RowID(), Box: geo.NewRectangle(ext.MinX(), ext.MaxY(), ext.MaxX(), ext.MinY()), Caption: f.String("caption")}
}

// WriteGeoPackage stores the objects in the network tables of g.
func WriteGeoPackage(g *gpkg.GeoPackage, vertices []Vertex, cables []Cable, buildings []Building, pagesize int) error {
	caption := gpkg.Column{Name: "caption", Type: "TEXT"}

	t, err := g.CreateTable(VerticesTable, gogpkg.Point, fid, caption)
	if err != nil {
		return err
	}
	features := make([]gpkg.Feature, len(vertices))
	for i, v := range vertices {
		features[i] = gpkg.Feature{FID: int64(v.ID), Geom: geom.Point{v.At.Lon, v.At.Lat}, Columns: map[string]any{"caption": v.Caption}}
	}
	if err = g.WriteFeatures(t, features, pagesize); err != nil {
		return fmt.Errorf("writing vertices: %w", err)
	}

	t, err = g.CreateTable(CablesTable, gogpkg.Linestring, fid, caption, gpkg.Column{Name: "length", Type: "REAL"})
	if err != nil {
		return err
	}
	features = make([]gpkg.Feature, len(cables))
	for i, c := range cables {
		features[i] = gpkg.Feature{
			FID:     int64(c.ID),
			Geom:    geom.LineString{{c.Segment.Left, c.Segment.Top}, {c.Segment.Right, c.Segment.Bottom}},
			Columns: map[string]any{"caption": c.Caption, "length": c.Length},
		}
	}
	if err = g.WriteFeatures(t, features, pagesize); err != nil {
		return fmt.Errorf("writing cables: %w", err)
	}

	t, err = g.CreateTable(BuildingsTable, gogpkg.Polygon, fid, caption)
	if err != nil {
		return err
	}
	features = make([]gpkg.Feature, len(buildings))
	for i, b := range buildings {
		box := b.Box.Bounds()
		ring := [][2]float64{{box.Left, box.Top}, {box.Right, box.Top}, {box.Right, box.Bottom}, {box.Left, box.Bottom}, {box.Left, box.Top}}
		features[i] = gpkg.Feature{FID: int64(b.ID), Geom: geom.Polygon{ring}, Columns: map[string]any{"caption": b.Caption}}
	}
	if err = g.WriteFeatures(t, features, pagesize); err != nil {
		return fmt.Errorf("writing buildings: %w", err)
	}
	return nil
}
