// Package tilestore keeps and fetches the encoded images of tiles.
package tilestore

import (
	"context"
	"errors"

	"github.com/pdok/gridmap/tile"
)

var ErrNotFound = errors.New("tile not found")

// Store persists encoded tile images. Load returns ErrNotFound for a tile it
// does not hold.
type Store interface {
	Load(ctx context.Context, b tile.Block) ([]byte, error)
	Save(ctx context.Context, b tile.Block, data []byte) error
}
