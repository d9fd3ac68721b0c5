package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/memmaker/chunkcull/engine/voxel"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in    string
		level slog.Level
		fails bool
	}{
		{in: "debug", level: slog.LevelDebug},
		{in: "", level: slog.LevelInfo},
		{in: "INFO", level: slog.LevelInfo},
		{in: "warn", level: slog.LevelWarn},
		{in: "warning", level: slog.LevelWarn},
		{in: "error", level: slog.LevelError},
		{in: "verbose", fails: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			level, err := parseLogLevel(test.in)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.level, level)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config)
		valid  bool
	}{
		{name: "default", modify: func(c *config) {}, valid: true},
		{name: "map file ignores size", modify: func(c *config) { c.MapFile = "world.map"; c.Width = 0 }, valid: true},
		{name: "empty generated map", modify: func(c *config) { c.Depth = 0 }},
		{name: "two map sources", modify: func(c *config) { c.MapFile = "a"; c.ConstructionFile = "b" }},
		{name: "no frames", modify: func(c *config) { c.Frames = 0 }},
		{name: "no budget", modify: func(c *config) { c.FrameBudget = 0 }},
		{name: "raster not a power of two", modify: func(c *config) { c.RasterWidth = 100 }},
		{name: "no render distance", modify: func(c *config) { c.RenderDistance = 0 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := defaultConfig()
			test.modify(&c)
			if test.valid {
				require.NoError(t, validateConfig(c))
			} else {
				require.Error(t, validateConfig(c))
			}
		})
	}
}

func TestCullConfig(t *testing.T) {
	c := defaultConfig()
	c.RenderDistance = 5
	c.FrustumPadding = 3
	cfg := cullConfig(c)
	require.Equal(t, int32(5), cfg.RenderDistance)
	require.Equal(t, float32(3), cfg.FrustumPadding)
	require.Equal(t, cull.DefaultConfig().TierRanges, cfg.TierRanges)
}

func TestVisibleMeshes(t *testing.T) {
	m := voxel.NewMap(2, 1, 1)
	a := m.NewChunk(0, 0, 0)
	m.NewChunk(1, 0, 0)
	a.Fill(voxel.NewBlock(voxel.BlockStone))
	m.RebuildAll()

	meshes := visibleMeshes(m, []int32{m.RegionAt(0, 0, 0), m.RegionAt(1, 0, 0), 42})
	require.Len(t, meshes, 2)
	require.Len(t, meshes[0].Boxes, 2)
	require.Len(t, meshes[1].Boxes, 1)
	require.Equal(t, a.AABBMax(), meshes[1].Boxes[0][1])
}

func testConfig(t *testing.T) config {
	dir := t.TempDir()
	c := defaultConfig()
	c.Width, c.Height, c.Depth = 3, 3, 3
	c.RenderDistance = 4
	c.RasterWidth, c.RasterHeight = 64, 64
	c.Frames = 12
	c.FrameBudget = 5 * time.Second
	c.EditInterval = 3
	c.GLTFOut = filepath.Join(dir, "visible.glb")
	c.RasterOut = filepath.Join(dir, "raster.bmp")
	c.ReportOut = filepath.Join(dir, "report.json")
	return c
}

func TestDriverFrames(t *testing.T) {
	conf := testConfig(t)
	require.NoError(t, validateConfig(conf))
	voxelMap, err := loadMap(conf)
	require.NoError(t, err)
	d, err := newDriver(conf, voxelMap)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		d.work(ctx)
	}()
	defer func() {
		cancel()
		<-workerDone
	}()

	for frame := 0; frame < conf.Frames; frame++ {
		d.moveCamera(frame)
		entry := d.renderFrame(frame)
		require.True(t, entry.Fresh, "frame %d", frame)
		require.False(t, entry.Skipped)
		require.Equal(t, uint64(frame+1), entry.Pass)
		require.Positive(t, entry.Visible)
		d.report.add(entry)
	}
	require.Equal(t, conf.Frames, d.report.FreshFrames)
	require.Equal(t, cull.StateIdle, d.traversal.State())

	d.report.Timers = d.timer.States()
	require.NoError(t, d.writeOutputs())
	for _, f := range []string{conf.GLTFOut, conf.RasterOut, conf.ReportOut} {
		info, err := os.Stat(f)
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}

	data, err := os.ReadFile(conf.ReportOut)
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Frames, conf.Frames)
	require.Equal(t, conf.Frames, decoded.FreshFrames)
	require.NotEmpty(t, decoded.Timers)
}

func TestDriverRebuildClearsRaster(t *testing.T) {
	conf := testConfig(t)
	voxelMap, err := loadMap(conf)
	require.NoError(t, err)
	d, err := newDriver(conf, voxelMap)
	require.NoError(t, err)
	d.moveCamera(0)

	pass := func() cull.Result {
		require.NoError(t, d.traversal.Prepare(cull.Input{View: d.view.Snapshot()}))
		require.NoError(t, d.traversal.Run(context.Background()))
		res, ok := d.traversal.Consume()
		require.True(t, ok)
		return res
	}

	require.True(t, pass().Stats.Cleared)
	require.False(t, pass().Stats.Cleared)

	d.rebuild([]int32{voxelMap.RegionAt(0, 0, 0)})
	require.True(t, pass().Stats.Cleared)
}

func TestSaveAndLoadMap(t *testing.T) {
	conf := testConfig(t)
	conf.Width, conf.Height, conf.Depth = 1, 2, 1
	generated, err := loadMap(conf)
	require.NoError(t, err)

	conf.MapFile = filepath.Join(t.TempDir(), "world.map")
	require.NoError(t, saveMap(generated, conf.MapFile))

	loaded, err := loadMap(conf)
	require.NoError(t, err)
	w, h, d := loaded.Size()
	require.Equal(t, [3]int32{1, 2, 1}, [3]int32{w, h, d})
	for i := int32(0); i < int32(loaded.RegionCount()); i++ {
		_, stale := loaded.BuildData(i)
		require.False(t, stale)
		require.Equal(t, generated.ChunkAt(i).Occlusion(), loaded.ChunkAt(i).Occlusion())
	}

	conf.MapFile = filepath.Join(t.TempDir(), "missing.map")
	_, err = loadMap(conf)
	require.Error(t, err)
}
