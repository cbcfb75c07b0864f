package tilecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/pdok/gridmap/metrics"
	"github.com/pdok/gridmap/tile"
	"github.com/pdok/gridmap/tilestore"
)

// Remote is where tiles come from when the store does not have them.
type Remote interface {
	Fetch(ctx context.Context, b tile.Block) ([]byte, error)
}

// Fetcher loads a tile from its store, falling back to the remote and saving
// what it downloads. Either may be nil. Concurrent fetches of one block share
// a single load.
type Fetcher struct {
	store  tilestore.Store
	remote Remote
	group  singleflight.Group
	log    *log.Entry
}

func NewFetcher(store tilestore.Store, remote Remote) *Fetcher {
	return &Fetcher{
		store:  store,
		remote: remote,
		log:    log.WithField("component", "fetcher"),
	}
}

// Fetch returns the decoded image of b. Images are decoded from PNG, JPEG or WebP.
func (f *Fetcher) Fetch(ctx context.Context, b tile.Block) (image.Image, error) {
	v, err, _ := f.group.Do("image:"+b.String(), func() (any, error) {
		data, _, err := f.load(ctx, b)
		if err != nil {
			return nil, err
		}
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding tile %v: %w", b, err)
		}
		f.log.WithFields(log.Fields{"block": b, "format": format}).Trace("decoded tile")
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Prefetch makes sure the store holds b. It reports whether b was downloaded.
func (f *Fetcher) Prefetch(ctx context.Context, b tile.Block) (bool, error) {
	v, err, _ := f.group.Do("data:"+b.String(), func() (any, error) {
		_, downloaded, err := f.load(ctx, b)
		return downloaded, err
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (f *Fetcher) load(ctx context.Context, b tile.Block) ([]byte, bool, error) {
	if f.store != nil {
		data, err := f.store.Load(ctx, b)
		switch {
		case err == nil:
			metrics.FetchesTotal.WithLabelValues("store", "ok").Inc()
			return data, false, nil
		case !errors.Is(err, tilestore.ErrNotFound):
			metrics.FetchesTotal.WithLabelValues("store", "error").Inc()
			f.log.WithError(err).WithField("block", b).Warn("tile store failed")
		}
	}
	if f.remote == nil {
		return nil, false, fmt.Errorf("tile %v: %w", b, tilestore.ErrNotFound)
	}
	data, err := f.remote.Fetch(ctx, b)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("remote", "error").Inc()
		return nil, false, err
	}
	metrics.FetchesTotal.WithLabelValues("remote", "ok").Inc()
	if f.store != nil {
		if err = f.store.Save(ctx, b, data); err != nil {
			f.log.WithError(err).WithField("block", b).Warn("could not keep downloaded tile")
		}
	}
	return data, true, nil
}
