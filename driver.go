package main

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/faiface/mainthread"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/memmaker/chunkcull/engine/voxel"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// driver simulates a renderer: a worker goroutine runs traversal passes
// while the render step, on the main thread, prepares them and picks up
// their results within the frame budget.
type driver struct {
	conf      config
	voxelMap  *voxel.Map
	traversal *cull.Traversal
	occluder  *cull.Occluder
	camera    *util.FPSCamera
	view      cull.ViewState
	lens      cull.Lens
	timer     *util.Timer

	kick chan uint64
	done chan uint64
	pass uint64

	current cull.Result
	report  report
}

func run(ctx context.Context, conf config) error {
	voxelMap, err := loadMap(conf)
	if err != nil {
		return err
	}
	if conf.SaveMap != "" {
		if err := saveMap(voxelMap, conf.SaveMap); err != nil {
			return err
		}
	}

	d, err := newDriver(conf, voxelMap)
	if err != nil {
		return err
	}

	if conf.MetricsAddr != "" {
		server := &http.Server{Addr: conf.MetricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.LogSystemError("metrics server stopped", "error", err)
			}
		}()
		defer server.Close()
		util.LogSystemInfo("serving metrics", "addr", conf.MetricsAddr)
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		d.work(workerCtx)
	}()

	err = d.loop(ctx)
	d.traversal.Reset()
	stopWorker()
	<-workerDone
	if err != nil {
		return err
	}
	return d.writeOutputs()
}

func loadMap(conf config) (*voxel.Map, error) {
	var voxelMap *voxel.Map
	switch {
	case conf.MapFile != "":
		file, err := os.Open(conf.MapFile)
		if err != nil {
			return nil, errors.Wrap(err, "opening map")
		}
		defer file.Close()
		if voxelMap, err = voxel.NewMapFromReader(file); err != nil {
			return nil, errors.Wrapf(err, "loading %s", conf.MapFile)
		}
	case conf.ConstructionFile != "":
		construction, err := voxel.LoadConstructionFile(conf.ConstructionFile)
		if err != nil {
			return nil, err
		}
		if voxelMap, err = voxel.NewMapFromConstruction(construction); err != nil {
			return nil, err
		}
	default:
		opts := voxel.DefaultTerrainOptions()
		opts.Seed = int64(conf.Seed)
		voxelMap = voxel.GenerateTerrain(int32(conf.Width), int32(conf.Height), int32(conf.Depth), opts)
	}
	voxelMap.RebuildAll()
	return voxelMap, nil
}

func saveMap(voxelMap *voxel.Map, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating map file")
	}
	if err := voxelMap.SaveTo(file); err != nil {
		file.Close()
		return errors.Wrapf(err, "saving %s", filename)
	}
	return errors.Wrapf(file.Close(), "closing %s", filename)
}

func newDriver(conf config, voxelMap *voxel.Map) (*driver, error) {
	cfg := cullConfig(conf)
	occluder, err := cull.NewOccluder(cfg.RasterWidth, cfg.RasterHeight)
	if err != nil {
		return nil, err
	}
	traversal, err := cull.NewTraversal(voxelMap, occluder, cfg)
	if err != nil {
		return nil, err
	}

	width, height, depth := voxelMap.Size()
	center := mgl32.Vec3{float32(width), float32(height), float32(depth)}.Mul(float32(voxel.CHUNK_SIZE) / 2)
	camera := util.NewFPSCamera(center, cfg.RasterWidth, cfg.RasterHeight)
	camera.SetFarPlaneDist(float32(cfg.RenderDistance+1) * float32(voxel.CHUNK_SIZE) * math.Sqrt2)

	return &driver{
		conf:      conf,
		voxelMap:  voxelMap,
		traversal: traversal,
		occluder:  occluder,
		camera:    camera,
		view:      cull.NewViewState(cfg.FrustumPadding),
		timer:     util.NewTimer(),
		kick:      make(chan uint64, 1),
		done:      make(chan uint64, 1),
	}, nil
}

// work runs every kicked pass and reports its id back.
func (d *driver) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.kick:
			err := d.traversal.Run(ctx)
			// a pass given up on by the render step is cancelled or was never
			// started
			if err != nil && !errors.Is(err, cull.ErrCancelled) && !errors.Is(err, cull.ErrNotReady) {
				util.LogCullWarning("pass failed", "pass", id, "error", err)
			}
			select {
			case d.done <- id:
			default:
			}
		}
	}
}

func (d *driver) loop(ctx context.Context) error {
	for frame := 0; frame < d.conf.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "frame loop interrupted")
		}
		d.moveCamera(frame)
		var entry frameEntry
		mainthread.Call(func() {
			entry = d.renderFrame(frame)
		})
		d.report.add(entry)
	}
	d.report.Timers = d.timer.States()
	util.LogSystemInfo("simulation finished",
		"frames", d.conf.Frames,
		"fresh", d.report.FreshFrames,
		"stale", d.report.StaleFrames)
	return nil
}

// moveCamera flies a slow circle around the map center while looking
// slightly down and swinging the view left and right.
func (d *driver) moveCamera(frame int) {
	width, height, depth := d.voxelMap.Size()
	size := float32(voxel.CHUNK_SIZE)
	center := mgl32.Vec3{float32(width) * size / 2, float32(height) * size * 0.6, float32(depth) * size / 2}
	radius := float32(min(width, depth)) * size / 3
	angle := float32(frame) * 0.01
	pos := center.Add(mgl32.Vec3{radius * util.Cos(angle), 0, radius * util.Sin(angle)})
	yaw := mgl32.RadToDeg(angle) + 90 + 30*util.Sin(float32(frame)*0.05)
	d.camera.Reposition(pos, yaw, -15)

	yaw, pitch := d.camera.GetRotation()
	d.lens = cull.Lens{
		FovY:   d.camera.GetFOV(),
		Aspect: d.camera.GetAspectRatio(),
		Near:   d.camera.GetNearPlaneDist(),
		Far:    d.camera.GetFarPlaneDist(),
	}
	d.view.Update(d.camera.GetPosition(), pitch, yaw, d.lens)
}

func (d *driver) renderFrame(frame int) frameEntry {
	if d.conf.EditInterval > 0 && frame > 0 && frame%d.conf.EditInterval == 0 && d.traversal.State() == cull.StateIdle {
		d.dig()
	}

	entry := frameEntry{Frame: frame, Position: d.view.Position()}
	switch d.traversal.State() {
	case cull.StateIdle:
		d.pass++
		if err := d.traversal.Prepare(cull.Input{View: d.view.Snapshot()}); err != nil {
			util.LogCullWarning("prepare failed", "error", err)
			entry.Skipped = true
			break
		}
		d.kick <- d.pass
	default:
		// the cancelled pass of an earlier frame has not wound down yet
		entry.Skipped = true
	}

	if !entry.Skipped {
		stop := d.timer.Start("wait")
		d.await()
		stop()
	}

	if res, ok := d.traversal.Consume(); ok {
		d.current = res
		entry.Fresh = true
		d.rebuild(res.NeedsBuild)
	} else {
		d.traversal.Reset()
	}
	entry.Pass = d.current.Frame
	entry.Visible = len(d.current.Visible)
	entry.NeedsBuild = len(d.current.NeedsBuild)
	entry.Stats = d.current.Stats
	return entry
}

// await blocks until the current pass reports back or the frame budget is
// spent.
func (d *driver) await() {
	budget := time.NewTimer(d.conf.FrameBudget)
	defer budget.Stop()
	for {
		select {
		case id := <-d.done:
			if id == d.pass {
				return
			}
		case <-budget.C:
			return
		}
	}
}

func (d *driver) rebuild(regions []int32) {
	if len(regions) == 0 {
		return
	}
	stop := d.timer.Start("rebuild")
	for _, i := range regions {
		d.voxelMap.RebuildOcclusion(i)
	}
	d.traversal.InvalidateRaster()
	stop()
	util.LogVoxelDebug("rebuilt regions", "count", len(regions))
}

// dig clears a block in front of the camera, which leaves its chunk with a
// stale payload until a pass reports it.
func (d *driver) dig() {
	target := voxel.ToGridInt3(d.camera.GetPosition().Add(d.camera.GetFront().Mul(4)))
	if b := d.voxelMap.GetGlobalBlock(target.X, target.Y, target.Z); b != nil && !b.IsAir() {
		d.voxelMap.SetBlock(target.X, target.Y, target.Z, voxel.NewAirBlock())
		util.LogVoxelDebug("dug block", "position", target)
	}
}

func (d *driver) writeOutputs() error {
	if d.conf.GLTFOut != "" {
		if err := util.ExportBoxesGLB(d.conf.GLTFOut, visibleMeshes(d.voxelMap, d.current.Visible)); err != nil {
			return err
		}
	}
	if d.conf.RasterOut != "" {
		if err := util.WriteBMP(d.conf.RasterOut, d.occluder.Image()); err != nil {
			return err
		}
	}
	if d.conf.ReportOut != "" {
		if err := d.report.write(d.conf.ReportOut); err != nil {
			return err
		}
	}
	return nil
}

// visibleMeshes turns the visible regions into two meshes: the region cubes
// and the solid boxes their payloads carry.
func visibleMeshes(voxelMap *voxel.Map, visible []int32) []util.BoxMesh {
	regions := util.BoxMesh{Name: "regions"}
	occluders := util.BoxMesh{Name: "occluders"}
	for _, i := range visible {
		chunk := voxelMap.ChunkAt(i)
		if chunk == nil {
			continue
		}
		regions.Boxes = append(regions.Boxes, [2]mgl32.Vec3{chunk.AABBMin(), chunk.AABBMax()})
		payload := chunk.Occlusion()
		if payload == nil {
			continue
		}
		pos := chunk.Position()
		for _, b := range payload.Boxes {
			w := b.World(pos.X, pos.Y, pos.Z)
			occluders.Boxes = append(occluders.Boxes, [2]mgl32.Vec3{w.Min, w.Max})
		}
	}
	return []util.BoxMesh{regions, occluders}
}
