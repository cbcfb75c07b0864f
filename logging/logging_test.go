package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	file := filepath.Join(t.TempDir(), "gridmap.log")
	closer, err := Setup("debug", file)
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	Component("cache").Debug("evicted 2/3/1")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[DEBUG]")
	assert.Contains(t, string(b), "[cache]")
	assert.Contains(t, string(b), "evicted 2/3/1")
}

func TestSetup_badLevel(t *testing.T) {
	_, err := Setup("loud", "")
	assert.Error(t, err)
}
