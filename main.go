package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/faiface/mainthread"
	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/pkg/errors"
)

type config struct {
	MapFile          string        `cli:"" env:"CHUNKCULL_MAP_FILE"          help:"Map file to load. A terrain is generated when empty."`
	ConstructionFile string        `cli:"" env:"CHUNKCULL_CONSTRUCTION_FILE" help:"Amulet .construction file to import instead of a map file."`
	SaveMap          string        `cli:"" env:"CHUNKCULL_SAVE_MAP"          help:"Writes the loaded or generated map to this file."`
	Width            int           `cli:"" env:"CHUNKCULL_WIDTH"             help:"Generated map width in chunks."`
	Height           int           `cli:"" env:"CHUNKCULL_HEIGHT"            help:"Generated map height in chunks."`
	Depth            int           `cli:"" env:"CHUNKCULL_DEPTH"             help:"Generated map depth in chunks."`
	Seed             int           `cli:"" env:"CHUNKCULL_SEED"              help:"Terrain generator seed."`
	RenderDistance   int           `cli:"" env:"CHUNKCULL_RENDER_DISTANCE"   help:"Horizontal render distance in chunks."`
	NearDistance     int           `cli:"" env:"CHUNKCULL_NEAR_DISTANCE"     help:"Distance in chunks within which chunks are drawn without an occlusion test."`
	RasterWidth      int           `cli:"" env:"CHUNKCULL_RASTER_WIDTH"      help:"Occlusion raster width, a power of two."`
	RasterHeight     int           `cli:"" env:"CHUNKCULL_RASTER_HEIGHT"     help:"Occlusion raster height, a power of two."`
	FrustumPadding   int           `cli:"" env:"CHUNKCULL_FRUSTUM_PADDING"   help:"Frustum padding in degrees."`
	Frames           int           `cli:"" env:"CHUNKCULL_FRAMES"            help:"Number of frames to simulate."`
	FrameBudget      time.Duration `cli:"" env:"CHUNKCULL_FRAME_BUDGET"      help:"How long a frame waits for the traversal before reusing the previous result."`
	EditInterval     int           `cli:"" env:"CHUNKCULL_EDIT_INTERVAL"     help:"Digs a block next to the camera every n frames. Zero disables edits."`
	MetricsAddr      string        `cli:"" env:"CHUNKCULL_METRICS_ADDR"      help:"Listening address for Prometheus metrics. Disabled when empty."`
	GLTFOut          string        `cli:"" env:"CHUNKCULL_GLTF_OUT"          help:"Writes the last visible set as a .glb file."`
	RasterOut        string        `cli:"" env:"CHUNKCULL_RASTER_OUT"        help:"Writes the last occlusion raster as a .bmp file."`
	ReportOut        string        `cli:"" env:"CHUNKCULL_REPORT_OUT"        help:"Writes a JSON frame report."`
	LogLevel         string        `cli:"" env:"CHUNKCULL_LOG_LEVEL"         help:"Log level (debug|info|warning|error)."`
	Help             bool          `cli:"" env:"-"                           help:"Show help."`
}

func defaultConfig() config {
	c := cull.DefaultConfig()
	return config{
		Width:          16,
		Height:         4,
		Depth:          16,
		Seed:           1,
		RenderDistance: int(c.RenderDistance),
		NearDistance:   int(c.NearDistance),
		RasterWidth:    c.RasterWidth,
		RasterHeight:   c.RasterHeight,
		FrustumPadding: int(c.FrustumPadding),
		Frames:         240,
		FrameBudget:    4 * time.Millisecond,
		EditInterval:   30,
		LogLevel:       "info",
	}
}

func main() {
	conf := defaultConfig()

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Runs the region visibility culler over a voxel map.").
		Options(&conf)
	cli.Load()

	level, err := parseLogLevel(conf.LogLevel)
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(2)
	}
	util.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := validateConfig(conf); err != nil {
		util.LogSystemError("invalid config", "error", err)
		os.Exit(2)
	}

	var runErr error
	// The render side of the frame loop runs on the OS main thread, as a
	// GL context would require.
	mainthread.Run(func() {
		runErr = run(ctx, conf)
	})
	if runErr != nil {
		util.LogSystemError("culler stopped", "error", runErr)
		os.Exit(1)
	}
}

func validateConfig(conf config) error {
	if conf.MapFile == "" && conf.ConstructionFile == "" && (conf.Width <= 0 || conf.Height <= 0 || conf.Depth <= 0) {
		return errors.Errorf("generated map size %dx%dx%d must be positive", conf.Width, conf.Height, conf.Depth)
	}
	if conf.MapFile != "" && conf.ConstructionFile != "" {
		return errors.New("map file and construction file are mutually exclusive")
	}
	if conf.Frames <= 0 {
		return errors.Errorf("frame count must be positive, got %d", conf.Frames)
	}
	if conf.FrameBudget <= 0 {
		return errors.Errorf("frame budget must be positive, got %s", conf.FrameBudget)
	}
	return errors.Wrap(cullConfig(conf).Validate(), "culling config")
}

func cullConfig(conf config) cull.Config {
	c := cull.DefaultConfig()
	c.RenderDistance = int32(conf.RenderDistance)
	c.NearDistance = int32(conf.NearDistance)
	c.RasterWidth = conf.RasterWidth
	c.RasterHeight = conf.RasterHeight
	c.FrustumPadding = float32(conf.FrustumPadding)
	return c
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", s)
}
