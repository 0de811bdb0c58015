package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_TOMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[router]
cacheCapacity = 512

[queue]
capacity = 100
policy = "drop"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Router.CacheCapacity)
	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, "drop", cfg.Queue.Policy)
	// scheduler was never mentioned in the file; §6 defaults apply.
	assert.Equal(t, "priority", cfg.Scheduler.SchedulingStrategy)
	assert.Equal(t, 10, cfg.Scheduler.MaxMessagesPerSlice)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestToCtxConfig_ProducesNestedMap(t *testing.T) {
	cfg := config.Default()
	ctxCfg := cfg.ToCtxConfig()

	router, ok := ctxCfg["router"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 256, router["cacheCapacity"])

	scheduler, ok := ctxCfg["scheduler"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "priority", scheduler["schedulingStrategy"])
}

func TestLoadTOMLBytes_DecodesArbitraryStruct(t *testing.T) {
	type routeEntry struct {
		Pattern string `toml:"pattern"`
		Reply   string `toml:"reply"`
	}
	type routeTable struct {
		Routes []routeEntry `toml:"routes"`
	}

	var out routeTable
	err := config.LoadTOMLBytes([]byte(`
[[routes]]
pattern = "ping"
reply = "pong"
`), &out)
	require.NoError(t, err)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, "ping", out.Routes[0].Pattern)
}
