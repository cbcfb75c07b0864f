package tilestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/tile"
)

type dialect struct {
	schema     []string
	bestEffort []string
	load       string
	save       string
	setMeta    string
}

// Tables follow the MBTiles layout: zoom counts from 0 and rows from the south.
var dialects = map[string]dialect{
	"sqlite3": {
		schema: []string{
			"create table if not exists tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob)",
			"create table if not exists metadata (name text, value text)",
			"create unique index if not exists tile_index on tiles (zoom_level, tile_column, tile_row)",
			"create unique index if not exists name on metadata (name)",
		},
		load:    "select tile_data from tiles where zoom_level = ? and tile_column = ? and tile_row = ?",
		save:    "insert or replace into tiles (zoom_level, tile_column, tile_row, tile_data) values (?, ?, ?, ?)",
		setMeta: "insert or replace into metadata (name, value) values (?, ?)",
	},
	"mysql": {
		schema: []string{
			"create table if not exists tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data mediumblob)",
			"create table if not exists metadata (name varchar(50), value mediumtext)",
		},
		// mysql has no "if not exists" for indexes, they fail once they exist
		bestEffort: []string{
			"create unique index tile_index on tiles (zoom_level, tile_column, tile_row)",
			"create unique index name on metadata (name)",
		},
		load:    "select tile_data from tiles where zoom_level = ? and tile_column = ? and tile_row = ?",
		save:    "replace into tiles (zoom_level, tile_column, tile_row, tile_data) values (?, ?, ?, ?)",
		setMeta: "replace into metadata (name, value) values (?, ?)",
	},
	"postgres": {
		schema: []string{
			"create table if not exists tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data bytea)",
			"create table if not exists metadata (name text, value text)",
			"create unique index if not exists tile_index on tiles (zoom_level, tile_column, tile_row)",
			"create unique index if not exists name on metadata (name)",
		},
		load: "select tile_data from tiles where zoom_level = $1 and tile_column = $2 and tile_row = $3",
		save: "insert into tiles (zoom_level, tile_column, tile_row, tile_data) values ($1, $2, $3, $4) " +
			"on conflict (zoom_level, tile_column, tile_row) do update set tile_data = excluded.tile_data",
		setMeta: "insert into metadata (name, value) values ($1, $2) " +
			"on conflict (name) do update set value = excluded.value",
	},
}

// SQLStore keeps tiles in a database laid out as an MBTiles file.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens a store on one of the drivers sqlite3, mysql or postgres and
// creates the tables when missing.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported tile database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s tile database: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	for _, stmt := range d.schema {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tile tables: %w", err)
		}
	}
	for _, stmt := range d.bestEffort {
		if _, err = db.Exec(stmt); err != nil {
			log.WithError(err).Debug("skipped tile index")
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// OpenMBTiles opens or creates the MBTiles file at path.
func OpenMBTiles(path string) (*SQLStore, error) {
	s, err := OpenSQL("sqlite3", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA synchronous=0", "PRAGMA journal_mode=DELETE"} {
		if _, err = s.db.Exec(pragma); err != nil {
			s.Close()
			return nil, fmt.Errorf("tuning %s: %w", path, err)
		}
	}
	return s, nil
}

// tmsRow flips y, MBTiles counts rows from the south.
func tmsRow(b tile.Block) int64 {
	return tile.NumTiles(b.Level) - 1 - b.Y
}

func (s *SQLStore) Load(ctx context.Context, b tile.Block) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.load, b.Level-1, b.X, tmsRow(b)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tile %v: %w", b, err)
	}
	return data, nil
}

func (s *SQLStore) Save(ctx context.Context, b tile.Block, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.save, b.Level-1, b.X, tmsRow(b), data); err != nil {
		return fmt.Errorf("saving tile %v: %w", b, err)
	}
	return nil
}

// SetMetadata stores a name/value pair of the MBTiles metadata table.
func (s *SQLStore) SetMetadata(ctx context.Context, name, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.setMeta, name, value); err != nil {
		return fmt.Errorf("saving metadata %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "select name, value from metadata")
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err = rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("reading metadata: %w", err)
		}
		meta[name] = value
	}
	return meta, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
