package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/gridmap/spatial"
)

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Tiles.Store)
	assert.Equal(t, 240, cfg.Tiles.CacheSize)
	assert.Equal(t, 30*time.Second, cfg.Tiles.Timeout)
	assert.Equal(t, 1000, cfg.Worker.Capacity)
	assert.Equal(t, 100*time.Millisecond, cfg.Worker.JoinInterval)
	assert.Equal(t, []string{"ultra", "extra", "medium", "low"}, cfg.Network.VertexPowers)

	v, c, b, err := cfg.Network.Powers()
	require.NoError(t, err)
	assert.Equal(t, []spatial.Power{spatial.PowerUltra, spatial.PowerExtra, spatial.PowerMedium, spatial.PowerLow}, v)
	assert.Equal(t, []spatial.Power{spatial.PowerUltra, spatial.PowerHigh, spatial.PowerLow, spatial.PowerLow}, c)
	assert.Equal(t, v, b)
}

func TestLoad_file(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gridmap.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log:
  level: debug
tiles:
  store: mbtiles
  mbtiles: /data/osm.mbtiles
  cacheSize: 64
worker:
  capacity: 10
network:
  cablePowers: [high, low]
`), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mbtiles", cfg.Tiles.Store)
	assert.Equal(t, "/data/osm.mbtiles", cfg.Tiles.MBTiles)
	assert.Equal(t, 64, cfg.Tiles.CacheSize)
	assert.Equal(t, 10, cfg.Worker.Capacity)
	assert.Equal(t, 50, cfg.Worker.JoinRetries)
	assert.Equal(t, []string{"high", "low"}, cfg.Network.CablePowers)
}

func TestLoad_env(t *testing.T) {
	t.Setenv("GRIDMAP_TILES_USER_AGENT", "test-agent")
	t.Setenv("GRIDMAP_TILES_TIMEOUT", "5s")
	t.Setenv("GRIDMAP_WORKER_JOIN_RETRIES", "3")
	t.Setenv("GRIDMAP_METRICS_ADDR", "localhost:9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "test-agent", cfg.Tiles.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Tiles.Timeout)
	assert.Equal(t, 3, cfg.Worker.JoinRetries)
	assert.Equal(t, "localhost:9100", cfg.Metrics.Addr)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"log level", map[string]string{"GRIDMAP_LOG_LEVEL": "loud"}},
		{"store", map[string]string{"GRIDMAP_TILES_STORE": "s3"}},
		{"dsn", map[string]string{"GRIDMAP_TILES_STORE": "postgres"}},
		{"power", map[string]string{"GRIDMAP_NETWORK_VERTEX_POWERS": "huge"}},
		{"metrics", map[string]string{"GRIDMAP_METRICS_ADDR": "nowhere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GRIDMAP_TILES_USER_AGENT", EnvName("tiles.userAgent"))
	assert.Equal(t, "GRIDMAP_TILES_REDIS_TTL", EnvName("tiles.redisTTL"))
	assert.Equal(t, "GRIDMAP_LOG_LEVEL", EnvName("log.level"))
}

func TestKeys(t *testing.T) {
	k := keys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, k, "worker.capacity")
	assert.Contains(t, k, "network.vertexPowers")
	assert.NotContains(t, k, "tiles")
}
