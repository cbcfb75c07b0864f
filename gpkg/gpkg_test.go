package gpkg

import (
	"path/filepath"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/processing"
	"github.com/pdok/gridmap/spatial"
)

func readAll(s processing.Source) []processing.Row {
	rows := make(chan processing.Row)
	go s.ReadRows(rows)
	var all []processing.Row
	for r := range rows {
		all = append(all, r)
	}
	return all
}

func TestGeoPackage_roundTrip(t *testing.T) {
	g, err := Open(filepath.Join(t.TempDir(), "points.gpkg"))
	require.NoError(t, err)
	defer g.Close()

	table, err := g.CreateTable("poles", gpkg.Point,
		Column{Name: "fid", Type: "INTEGER", NotNull: true, PK: true},
		Column{Name: "name", Type: "TEXT"},
		Column{Name: "height", Type: "REAL"},
	)
	require.NoError(t, err)
	features := []Feature{
		{FID: 1, Geom: geom.Point{37.6, 55.75}, Columns: map[string]any{"name": "a", "height": 9.5}},
		{FID: 2, Geom: geom.Point{37.7, 55.8}, Columns: map[string]any{"name": "b", "height": 12.0}},
		{FID: 3, Geom: geom.Point{37.8, 55.85}, Columns: map[string]any{"name": nil, "height": nil}},
	}
	require.NoError(t, g.WriteFeatures(table, features, 2))

	tables, err := g.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "poles", tables[0].Name)
	assert.Equal(t, "geom", tables[0].GColumn)
	assert.Equal(t, gpkg.Point, tables[0].GType)
	assert.Equal(t, "fid", tables[0].pk())

	_, err = g.Table("wires")
	assert.ErrorIs(t, err, ErrNoTable)

	src := g.Source(tables[0])
	rows := readAll(src)
	require.NoError(t, src.Err())
	require.Len(t, rows, 3)
	f := rows[1].(Feature)
	assert.Equal(t, 2, f.RowID())
	assert.Equal(t, "b", f.String("name"))
	assert.Equal(t, 12.0, f.Float("height"))
	assert.Equal(t, spatial.Point{At: geo.NewCoordinate(37.7, 55.8)}, f.Geometry())
	assert.Empty(t, rows[2].(Feature).String("name"))
}

func TestFeature_Geometry(t *testing.T) {
	tests := []struct {
		name string
		geom geom.Geometry
		want spatial.Geometry
	}{
		{name: "point", geom: geom.Point{1, 2}, want: spatial.Point{At: geo.NewCoordinate(1, 2)}},
		{
			name: "two point line",
			geom: geom.LineString{{1, 2}, {3, 4}},
			want: spatial.Line{Segment: geo.NewRectangle(1, 2, 3, 4)},
		},
		{name: "long line", geom: geom.LineString{{1, 2}, {3, 4}, {5, 6}}, want: nil},
		{
			name: "closed ring",
			geom: geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
			want: spatial.Polygon{Ring: geo.NewPolygon(
				geo.NewCoordinate(0, 0), geo.NewCoordinate(2, 0), geo.NewCoordinate(2, 2), geo.NewCoordinate(0, 2))},
		},
		{name: "degenerate ring", geom: geom.Polygon{{{0, 0}, {2, 0}, {0, 0}}}, want: nil},
		{
			name: "extent",
			geom: &geom.Extent{0, 1, 2, 3},
			want: spatial.Rectangle{Box: geo.NewRectangle(0, 3, 2, 1)},
		},
		{name: "multipoint", geom: geom.MultiPoint{{1, 2}}, want: nil},
		{name: "none", geom: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Feature{Geom: tt.geom}.Geometry())
		})
	}
}

func TestTable_SQL(t *testing.T) {
	table := Table{
		Name: "cables",
		Columns: []Column{
			{Name: "fid", Type: "INTEGER", NotNull: true, PK: true},
			{Name: "caption", Type: "TEXT"},
			{Name: "geom", Type: "LINESTRING"},
		},
		GColumn: "geom",
	}
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "cables"(fid INTEGER NOT NULL PRIMARY KEY, caption TEXT, geom LINESTRING);`, table.createSQL())
	assert.Equal(t, `SELECT fid,caption,geom FROM "cables";`, table.selectSQL())
	assert.Equal(t, `INSERT INTO "cables"(fid,caption,geom) VALUES(?,?,?)`, table.insertSQL())
}
