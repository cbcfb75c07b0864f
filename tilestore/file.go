package tilestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdok/gridmap/tile"
)

// FileStore keeps one file per tile below Base, see tile.Path.
type FileStore struct {
	Base string
}

func NewFileStore(base string) *FileStore {
	return &FileStore{Base: base}
}

func (s *FileStore) Load(_ context.Context, b tile.Block) ([]byte, error) {
	data, err := os.ReadFile(tile.Path(s.Base, b))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile %v: %w", b, err)
	}
	return data, nil
}

// Save writes to a temporary file first so a concurrent Load never sees half a tile.
func (s *FileStore) Save(_ context.Context, b tile.Block, data []byte) error {
	path := tile.Path(s.Base, b)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("creating tile dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return fmt.Errorf("creating tile file: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing tile %v: %w", b, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing tile %v: %w", b, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing tile %v: %w", b, err)
	}
	return nil
}
