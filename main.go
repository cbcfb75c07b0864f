package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pdok/gridmap/config"
	"github.com/pdok/gridmap/geo"
	"github.com/pdok/gridmap/gpkg"
	"github.com/pdok/gridmap/layer"
	"github.com/pdok/gridmap/logging"
	"github.com/pdok/gridmap/metrics"
	"github.com/pdok/gridmap/tile"
	"github.com/pdok/gridmap/tilecache"
	"github.com/pdok/gridmap/tilestore"
)

const CONFIG string = `config`
const BOUNDS string = `bounds`
const MINLEVEL string = `minLevel`
const MAXLEVEL string = `maxLevel`
const COUNT string = `count`
const SEED string = `seed`
const TARGET string = `targetGpkg`
const PAGESIZE string = `pagesize`

//nolint:funlen
func main() {
	_ = godotenv.Load(".env")

	app := cli.NewApp()
	app.Name = "gridmap"
	app.Usage = "Tile prefetching and network indexing on a slippy map grid"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "Config file (yaml, json or toml), settings can be overridden with GRIDMAP_ environment variables",
			EnvVars: []string{strcase.ToScreamingSnake(config.EnvPrefix + "_" + CONFIG)},
		},
		&cli.Float64SliceFlag{
			Name:    BOUNDS,
			Aliases: []string{"b"},
			Usage:   "Area as left,top,right,bottom in degrees",
			Value:   cli.NewFloat64Slice(37.35, 55.95, 37.85, 55.55),
			EnvVars: []string{strcase.ToScreamingSnake(config.EnvPrefix + "_" + BOUNDS)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "prefetch",
			Usage: "Download the tiles of an area into the configured tile store",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    MINLEVEL,
					Usage:   "First zoom level",
					Value:   layer.MinLevel,
					EnvVars: []string{strcase.ToScreamingSnake(config.EnvPrefix + "_" + MINLEVEL)},
				},
				&cli.IntFlag{
					Name:    MAXLEVEL,
					Usage:   "Last zoom level",
					Value:   12,
					EnvVars: []string{strcase.ToScreamingSnake(config.EnvPrefix + "_" + MAXLEVEL)},
				},
			},
			Action: prefetch,
		},
		{
			Name:  "sample",
			Usage: "Generate a sample cable network, index it and report the index statistics",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    COUNT,
					Aliases: []string{"n"},
					Usage:   "Number of cables",
					Value:   1000,
				},
				&cli.Int64Flag{
					Name:  SEED,
					Usage: "Random seed, the current time when 0",
				},
				&cli.StringFlag{
					Name:    TARGET,
					Aliases: []string{"t"},
					Usage:   "Write the network to this GeoPackage and index it from there",
				},
				&cli.IntFlag{
					Name:    PAGESIZE,
					Aliases: []string{"p"},
					Usage:   "Page Size, how many features are written per transaction to the GeoPackage",
					Value:   1000,
				},
			},
			Action: sample,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) (*config.Config, func(), error) {
	cfg, err := config.Load(c.String(CONFIG))
	if err != nil {
		return nil, nil, err
	}
	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil { //nolint:gosec
				log.Errorf("metrics endpoint stopped: %v", err)
			}
		}()
	}
	return cfg, func() { _ = closer.Close() }, nil
}

func bounds(c *cli.Context) (geo.Rectangle, error) {
	b := c.Float64Slice(BOUNDS)
	if len(b) != 4 {
		return geo.Rectangle{}, fmt.Errorf("%s needs 4 values, got %d", BOUNDS, len(b))
	}
	return geo.NewRectangle(b[0], b[1], b[2], b[3]), nil
}

func openStore(t config.Tiles) (tilestore.Store, func() error, error) {
	nop := func() error { return nil }
	switch t.Store {
	case "file":
		return tilestore.NewFileStore(t.Dir), nop, nil
	case "mbtiles":
		s, err := tilestore.OpenMBTiles(t.MBTiles)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "mysql", "postgres":
		s, err := tilestore.OpenSQL(t.Store, t.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		pool := tilestore.NewRedisPool(t.Redis, t.Workers)
		return tilestore.NewRedisStore(pool, "gridmap:", t.RedisTTL), pool.Close, nil
	}
	return nil, nop, nil
}

func prefetch(c *cli.Context) error {
	cfg, done, err := setup(c)
	if err != nil {
		return err
	}
	defer done()
	area, err := bounds(c)
	if err != nil {
		return err
	}
	minLevel, maxLevel := c.Int(MINLEVEL), c.Int(MAXLEVEL)
	if minLevel < layer.MinLevel || maxLevel > layer.MaxLevel || minLevel > maxLevel {
		return fmt.Errorf("levels %d-%d outside %d-%d", minLevel, maxLevel, layer.MinLevel, layer.MaxLevel)
	}

	store, closeStore, err := openStore(cfg.Tiles)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Errorf("closing tile store: %v", err)
		}
	}()
	if store == nil {
		return errors.New("prefetch needs a tile store")
	}
	fetcher := tilecache.NewFetcher(store, tilestore.NewHTTPRemote(cfg.Tiles.URL, cfg.Tiles.UserAgent, cfg.Tiles.Timeout))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := logging.Component("prefetch").WithField("run", uuid.New().String())
	run.Infof("=== start prefetching levels %d-%d of %v ===", minLevel, maxLevel, area)
	var downloaded, failed int64
	for level := minLevel; level <= maxLevel; level++ {
		blocks := tile.RectOf(area, level).Blocks()
		d, f, err := prefetchLevel(ctx, fetcher, blocks, cfg.Tiles.Workers)
		downloaded += d
		failed += f
		if err != nil {
			return err
		}
	}
	run.Infof("=== done prefetching, %d downloaded, %d failed ===", downloaded, failed)

	if s, ok := store.(*tilestore.SQLStore); ok && cfg.Tiles.Store == "mbtiles" {
		meta := map[string]string{
			"name":    "gridmap",
			"format":  "png",
			"bounds":  fmt.Sprintf("%f,%f,%f,%f", area.Left, area.Bottom, area.Right, area.Top),
			"minzoom": fmt.Sprint(minLevel - 1),
			"maxzoom": fmt.Sprint(maxLevel - 1),
		}
		for name, value := range meta {
			if err := s.SetMetadata(ctx, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func prefetchLevel(ctx context.Context, fetcher *tilecache.Fetcher, blocks tile.BlockRange, workers int) (downloaded, failed int64, err error) {
	bar := pb.New64(blocks.Count())
	bar.SetTemplateString(`{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
	bar.Set("prefix", fmt.Sprintf("Level %d : ", blocks.Level))
	bar.Start()
	defer bar.Finish()

	results := make(chan int, workers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	go func() {
		blocks.Each(func(b tile.Block) bool {
			if ctx.Err() != nil {
				return false
			}
			g.Go(func() error {
				ok, err := fetcher.Prefetch(ctx, b)
				switch {
				case err != nil && ctx.Err() != nil:
					return ctx.Err()
				case err != nil:
					log.Warnf("prefetching %v: %v", b, err)
					results <- -1
				case ok:
					results <- 1
				default:
					results <- 0
				}
				return nil
			})
			return true
		})
		_ = g.Wait()
		close(results)
	}()
	for r := range results {
		bar.Increment()
		switch r {
		case 1:
			downloaded++
		case -1:
			failed++
		}
	}
	return downloaded, failed, g.Wait()
}

func sample(c *cli.Context) error {
	cfg, done, err := setup(c)
	if err != nil {
		return err
	}
	defer done()
	area, err := bounds(c)
	if err != nil {
		return err
	}
	seed := c.Int64(SEED)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	vertices, cables, err := layer.GenerateSample(c.Int(COUNT), area, rand.New(rand.NewSource(seed))) //nolint:gosec
	if err != nil {
		return err
	}
	log.Infof("generated %d vertices and %d cables with seed %d", len(vertices), len(cables), seed)

	vp, cp, bp, err := cfg.Network.Powers()
	if err != nil {
		return err
	}
	view := layer.View{
		Center: geo.NewCoordinate((area.Left+area.Right)/2, (area.Top+area.Bottom)/2),
		Level:  12,
		Width:  1024,
		Height: 768,
	}
	net := layer.NewNetLayer(view, layer.NetConfig{
		Worker:         cfg.Worker,
		Workers:        cfg.Network.Workers,
		VertexPowers:   vp,
		CablePowers:    cp,
		BuildingPowers: bp,
	})
	defer func() {
		if err := net.Close(); err != nil {
			log.Errorf("closing net layer: %v", err)
		}
	}()

	var frame layer.FrameEvent
	if target := c.String(TARGET); target != "" {
		frame, err = reloadFromGeoPackage(net, target, vertices, cables, c.Int(PAGESIZE))
	} else {
		net.Merge(vertices, cables, nil)
		frame, err = nextFrame(net)
	}
	if err != nil {
		return err
	}
	nv, nc, _ := net.Counts()
	vs, cs, _ := net.Stats()
	log.Infof("indexed %d vertices (%v) and %d cables (%v)", nv, vs, nc, cs)
	log.Infof("%d vertices and %d cables visible at level %d around %v",
		len(frame.Vertices), len(frame.Cables), frame.View.Level, frame.View.Center)

	if len(vertices) > 0 {
		at := vertices[0].At
		log.Infof("near %v: %d vertices, %d cables", at,
			len(net.FindNearestVertex(at, layer.VertexRadius(view.Level))), len(net.FindNearestCable(at, 4)))
	}
	return nil
}

func nextFrame(net *layer.NetLayer) (layer.FrameEvent, error) {
	select {
	case frame := <-net.Events():
		return frame, nil
	case <-time.After(time.Minute):
		return layer.FrameEvent{}, errors.New("timed out waiting for the network to be indexed")
	}
}

func reloadFromGeoPackage(net *layer.NetLayer, target string, vertices []layer.Vertex, cables []layer.Cable, pagesize int) (layer.FrameEvent, error) {
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return layer.FrameEvent{}, fmt.Errorf("could not remove target file: %w", err)
	}
	g, err := gpkg.Open(target)
	if err != nil {
		return layer.FrameEvent{}, err
	}
	defer g.Close()
	if err = layer.WriteGeoPackage(g, vertices, cables, nil, pagesize); err != nil {
		return layer.FrameEvent{}, err
	}
	src, err := layer.ReadGeoPackage(g)
	if err != nil {
		return layer.FrameEvent{}, err
	}
	net.Reload(src)
	// g stays open until the reload has read it
	return nextFrame(net)
}
