// Package gpkg reads and writes feature tables of a GeoPackage, feeding them to
// the processing pipeline.
package gpkg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/processing"
)

// WGS84 is the only reference system features are written in.
const WGS84 int32 = 4326

var ErrNoTable = errors.New("no such feature table")

type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

type Table struct {
	Name    string
	Columns []Column
	GColumn string
	GType   gpkg.GeometryType
	SRS     int32
}

// geometryTypeFromString returns the numeric value of a geometry string
func geometryTypeFromString(geometrytype string) gpkg.GeometryType {
	switch strings.ToUpper(geometrytype) {
	case "POINT":
		return gpkg.Point
	case "LINESTRING":
		return gpkg.Linestring
	case "POLYGON":
		return gpkg.Polygon
	case "MULTIPOINT":
		return gpkg.MultiPoint
	case "MULTILINESTRING":
		return gpkg.MultiLinestring
	case "MULTIPOLYGON":
		return gpkg.MultiPolygon
	case "GEOMETRYCOLLECTION":
		return gpkg.GeometryCollection
	default:
		return gpkg.Geometry
	}
}

func geometryTypeName(gtype gpkg.GeometryType) string {
	for _, name := range []string{"POINT", "LINESTRING", "POLYGON", "MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION"} {
		if geometryTypeFromString(name) == gtype {
			return name
		}
	}
	return "GEOMETRY"
}

type GeoPackage struct {
	handle *gpkg.Handle
	log    *log.Entry
}

// Open opens the GeoPackage at file, creating it when it does not exist.
func Open(file string) (*GeoPackage, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening GeoPackage %s: %w", file, err)
	}
	return &GeoPackage{handle: handle, log: log.WithField("component", "gpkg")}, nil
}

func (g *GeoPackage) Close() error {
	return g.handle.Close()
}

// Tables lists the feature tables.
func (g *GeoPackage) Tables() ([]Table, error) {
	rows, err := g.handle.Query(`SELECT table_name, column_name, geometry_type_name, srs_id FROM gpkg_geometry_columns;`)
	if err != nil {
		return nil, fmt.Errorf("error reading the table information: %w", err)
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		var t Table
		var gtype string
		if err = rows.Scan(&t.Name, &t.GColumn, &gtype, &t.SRS); err != nil {
			return nil, fmt.Errorf("error reading the table information: %w", err)
		}
		t.GType = geometryTypeFromString(gtype)
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	for i := range tables {
		if tables[i].Columns, err = g.tableColumns(tables[i].Name); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Table looks up the feature table name.
func (g *GeoPackage) Table(name string) (Table, error) {
	tables, err := g.Tables()
	if err != nil {
		return Table{}, err
	}
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %s", ErrNoTable, name)
}

// tableColumns collects the column information of a given table
func (g *GeoPackage) tableColumns(table string) ([]Column, error) {
	rows, err := g.handle.Query(fmt.Sprintf(`PRAGMA table_info('%v');`, table))
	if err != nil {
		return nil, fmt.Errorf("error reading the columns of %s: %w", table, err)
	}
	defer rows.Close()
	var columns []Column
	for rows.Next() {
		var (
			cid, notnull, pk int
			dflt             *string
			c                Column
		)
		if err = rows.Scan(&cid, &c.Name, &c.Type, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("error reading the columns of %s: %w", table, err)
		}
		c.NotNull, c.PK = notnull == 1, pk == 1
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// CreateTable creates a feature table with a geometry column geom of gtype,
// registered in the GeoPackage contents.
func (g *GeoPackage) CreateTable(name string, gtype gpkg.GeometryType, columns ...Column) (Table, error) {
	t := Table{Name: name, Columns: columns, GColumn: "geom", GType: gtype, SRS: WGS84}
	t.Columns = append(t.Columns, Column{Name: t.GColumn, Type: geometryTypeName(gtype)})
	if _, err := g.handle.Exec(t.createSQL()); err != nil {
		return Table{}, fmt.Errorf("error building table %s: %w", name, err)
	}
	err := g.handle.AddGeometryTable(gpkg.TableDescription{
		Name:          t.Name,
		ShortName:     t.Name,
		Description:   t.Name,
		GeometryField: t.GColumn,
		GeometryType:  t.GType,
		SRS:           t.SRS,
		Z:             gpkg.Prohibited,
		M:             gpkg.Prohibited,
	})
	if err != nil {
		return Table{}, fmt.Errorf("error adding geometry table %s: %w", name, err)
	}
	return t, nil
}

// WriteFeatures inserts features into t, pagesize per transaction, and
// updates the extent of t.
func (g *GeoPackage) WriteFeatures(t Table, features []Feature, pagesize int) error {
	if pagesize < 1 {
		pagesize = len(features)
	}
	var ext *geom.Extent
	for start := 0; start < len(features); start += pagesize {
		page := features[start:min(start+pagesize, len(features))]
		if err := g.writePage(t, page, &ext); err != nil {
			return err
		}
	}
	if ext == nil {
		return nil
	}
	if err := g.handle.UpdateGeometryExtent(t.Name, ext); err != nil {
		return fmt.Errorf("failed to update extent of %s: %w", t.Name, err)
	}
	return nil
}

func (g *GeoPackage) writePage(t Table, features []Feature, ext **geom.Extent) error {
	tx, err := g.handle.Begin()
	if err != nil {
		return fmt.Errorf("could not start a transaction: %w", err)
	}
	stmt, err := tx.Prepare(t.insertSQL())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("could not prepare a statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		sb, err := gpkg.NewBinary(t.SRS, f.Geom)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("could not create a binary geometry for fid %d: %w", f.FID, err)
		}
		data := []any{f.FID}
		for _, c := range t.Columns {
			if c.PK || c.Name == t.GColumn {
				continue
			}
			data = append(data, f.Columns[c.Name])
		}
		data = append(data, sb)
		if _, err = stmt.Exec(data...); err != nil {
			tx.Rollback()
			return fmt.Errorf("could not insert fid %d: %w", f.FID, err)
		}

		if *ext == nil {
			if *ext, err = geom.NewExtentFromGeometry(f.Geom); err != nil {
				*ext = nil
				g.log.WithError(err).Warn("failed to create new extent")
			}
		} else {
			(*ext).AddGeometry(f.Geom)
		}
	}
	return tx.Commit()
}

// Source reads the features of t.
func (g *GeoPackage) Source(t Table) *Source {
	return &Source{gpkg: g, table: t}
}

// Source serves the features of one table as processing rows.
type Source struct {
	gpkg  *GeoPackage
	table Table
	err   error
}

// Err is the error that ended the last ReadRows early, if any.
func (s *Source) Err() error {
	return s.err
}

func (s *Source) ReadRows(out chan<- processing.Row) {
	defer close(out)
	s.err = s.readRows(out)
	if s.err != nil {
		s.gpkg.log.WithError(s.err).WithField("table", s.table.Name).Error("reading features stopped")
	}
}

func (s *Source) readRows(out chan<- processing.Row) error {
	rows, err := s.gpkg.handle.Query(s.table.selectSQL())
	if err != nil {
		return fmt.Errorf("error querying %s: %w", s.table.Name, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("error reading the columns: %w", err)
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		valPtrs := make([]any, len(cols))
		for i := range cols {
			valPtrs[i] = &vals[i]
		}
		if err = rows.Scan(valPtrs...); err != nil {
			return fmt.Errorf("error reading row values: %w", err)
		}

		f := Feature{Columns: make(map[string]any, len(cols))}
		for i, name := range cols {
			switch {
			case name == s.table.GColumn:
				raw, ok := vals[i].([]byte)
				if !ok {
					continue
				}
				sb, err := gpkg.DecodeGeometry(raw)
				if err != nil {
					return fmt.Errorf("error decoding the geometry: %w", err)
				}
				f.Geom = sb.Geometry
			case s.table.pk() == name:
				fid, ok := vals[i].(int64)
				if !ok {
					return fmt.Errorf("unexpected type for fid %v: %T", vals[i], vals[i])
				}
				f.FID = fid
			default:
				switch v := vals[i].(type) {
				case []byte:
					f.Columns[name] = string(v)
				case int64, float64, string, time.Time, nil:
					f.Columns[name] = v
				default:
					return fmt.Errorf("unexpected type for sqlite column data: %v: %T", name, v)
				}
			}
		}
		out <- f
	}
	return rows.Err()
}

func (t Table) pk() string {
	for _, c := range t.Columns {
		if c.PK {
			return c.Name
		}
	}
	return "fid"
}

// createSQL creates a CREATE statement on the given table and column information
func (t Table) createSQL() string {
	var columnparts []string
	for _, column := range t.Columns {
		columnpart := column.Name + ` ` + column.Type
		if column.NotNull {
			columnpart += ` NOT NULL`
		}
		if column.PK {
			columnpart += ` PRIMARY KEY`
		}
		columnparts = append(columnparts, columnpart)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%v"(%s);`, t.Name, strings.Join(columnparts, `, `))
}

// selectSQL build a SELECT statement based on the table and columns
func (t Table) selectSQL() string {
	var csql []string
	for _, c := range t.Columns {
		csql = append(csql, c.Name)
	}
	return `SELECT ` + strings.Join(csql, `,`) + ` FROM "` + t.Name + `";`
}

// insertSQL builds the INSERT statement, primary key first and geometry last
func (t Table) insertSQL() string {
	csql := []string{t.pk()}
	vsql := []string{`?`}
	for _, c := range t.Columns {
		if !c.PK && c.Name != t.GColumn {
			csql = append(csql, c.Name)
			vsql = append(vsql, `?`)
		}
	}
	csql = append(csql, t.GColumn)
	vsql = append(vsql, `?`)
	return `INSERT INTO "` + t.Name + `"(` + strings.Join(csql, `,`) + `) VALUES(` + strings.Join(vsql, `,`) + `)`
}
