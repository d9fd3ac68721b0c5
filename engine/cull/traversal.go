package cull

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/chunkcull/engine/queue"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/pkg/errors"
)

type State int32

const (
	StateIdle State = iota
	StateReady
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	ErrNotIdle   = errors.New("traversal is not idle")
	ErrNotReady  = errors.New("traversal is not ready")
	ErrCancelled = errors.New("traversal cancelled")
)

// how many regions are popped between two context checks
const ctxCheckInterval = 64

// Input is what the render thread hands to a pass.
type Input struct {
	// View is a frozen snapshot owned by the pass.
	View ViewState
	// RenderDistance overrides Config.RenderDistance when positive.
	RenderDistance int32
}

type PassStats struct {
	Popped        int
	Rejected      int
	Deferred      int
	PassedThrough int
	Near          int
	CacheHits     int
	Rasterized    int
	Culled        int
	Cleared       bool
	Duration      time.Duration
}

// Result is the published outcome of a completed pass.
type Result struct {
	Frame uint64
	// Visible lists regions in frontier order.
	Visible []int32
	// NeedsBuild lists regions whose occlusion payload is missing or stale.
	NeedsBuild []int32
	Stats      PassStats
}

// Traversal determines the potentially visible regions once per frame with
// a level order walk of the region graph. A render thread calls Prepare,
// a worker calls Run, and the render thread picks the result up with
// Consume once State reports StateComplete. Reset may be called from any
// goroutine at any time.
type Traversal struct {
	graph RegionGraph
	occ   *Occluder
	cfg   Config

	mu        sync.Mutex
	state     atomic.Int32
	cancelled atomic.Bool
	// set when occluding geometry changed since the raster was drawn
	rasterStale atomic.Bool
	input     Input
	published Result

	// worker private
	frame       uint64
	cur, next   []token
	head        int
	visible     []int32
	needsBuild  []int32
	stats       PassStats
	seeds       *queue.PriorityQueue[int32]
	rasterValid bool
	rasterPos   uint64
	rasterView  uint64
	camRegion   [3]int32
	renderDist  int32
	seen        []bool
}

// NewTraversal creates a traversal over graph. The occluder becomes owned
// by the traversal and must not be used elsewhere.
func NewTraversal(graph RegionGraph, occ *Occluder, cfg Config) (*Traversal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid traversal config")
	}
	if graph == nil {
		return nil, errors.New("traversal needs a region graph")
	}
	if occ == nil {
		return nil, errors.New("traversal needs an occluder")
	}
	n := graph.RegionCount()
	return &Traversal{
		graph:      graph,
		occ:        occ,
		cfg:        cfg,
		cur:        make([]token, 0, n),
		next:       make([]token, 0, n),
		visible:    make([]int32, 0, n),
		needsBuild: make([]int32, 0, n),
		seeds:      queue.NewPriorityQueue[int32](64),
	}, nil
}

func (t *Traversal) State() State {
	return State(t.state.Load())
}

func (t *Traversal) Config() Config {
	return t.cfg
}

// Prepare stores the inputs of the next pass. It fails unless the
// traversal is idle.
func (t *Traversal) Prepare(in Input) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State() != StateIdle {
		return errors.Wrapf(ErrNotIdle, "prepare in state %s", t.State())
	}
	t.input = in
	t.cancelled.Store(false)
	t.state.Store(int32(StateReady))
	return nil
}

// Reset cancels the current pass. A ready or complete traversal becomes
// idle immediately; a running pass notices the request at its next popped
// region and becomes idle without publishing.
func (t *Traversal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled.Store(true)
	switch t.State() {
	case StateReady, StateComplete:
		t.state.Store(int32(StateIdle))
	}
}

// Consume hands the completed result to the caller and returns the
// traversal to idle. ok is false unless the traversal was complete.
func (t *Traversal) Consume() (res Result, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State() != StateComplete {
		return Result{}, false
	}
	t.state.Store(int32(StateIdle))
	return t.published, true
}

// Published returns the result of the last completed pass.
func (t *Traversal) Published() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.published
}

// InvalidateRaster makes the next pass start from a cleared raster. Call it
// after any region's payload was rebuilt: coverage drawn from the old solid
// boxes, and every cached result tested against it, no longer holds.
// Safe to call from any goroutine.
func (t *Traversal) InvalidateRaster() {
	t.rasterStale.Store(true)
}

func (t *Traversal) VisibleRegionCount() int {
	return len(t.Published().Visible)
}

// Run executes a prepared pass on the calling goroutine. It returns
// ErrCancelled when Reset or ctx interrupted the pass.
func (t *Traversal) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.State() != StateReady {
		s := t.State()
		t.mu.Unlock()
		return errors.Wrapf(ErrNotReady, "run in state %s", s)
	}
	t.state.Store(int32(StateRunning))
	in := t.input
	t.mu.Unlock()

	start := time.Now()
	completed := t.traverse(ctx, &in)
	return t.finish(completed, time.Since(start))
}

func (t *Traversal) finish(completed bool, elapsed time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !completed || t.cancelled.Load() {
		t.visible = t.visible[:0]
		t.needsBuild = t.needsBuild[:0]
		t.cur, t.next = t.cur[:0], t.next[:0]
		t.state.Store(int32(StateIdle))
		instrumentPass("cancelled")
		util.LogCullDebug("pass cancelled", "frame", t.frame, "popped", t.stats.Popped)
		return ErrCancelled
	}

	t.stats.Duration = elapsed
	t.published = Result{
		Frame:      t.frame,
		Visible:    slices.Clone(t.visible),
		NeedsBuild: slices.Clone(t.needsBuild),
		Stats:      t.stats,
	}
	t.state.Store(int32(StateComplete))
	instrumentPass("complete")
	instrumentPublish(&t.published)
	util.LogCullDebug("pass complete",
		"frame", t.frame,
		"visible", len(t.published.Visible),
		"needs_build", len(t.published.NeedsBuild),
		"duration", elapsed)
	return nil
}

func (t *Traversal) traverse(ctx context.Context, in *Input) bool {
	view := &in.View
	t.frame++
	t.stats = PassStats{}
	t.visible = t.visible[:0]
	t.needsBuild = t.needsBuild[:0]
	t.cur, t.next, t.head = t.cur[:0], t.next[:0], 0
	t.camRegion = view.CameraRegion()
	t.renderDist = t.cfg.RenderDistance
	if in.RenderDistance > 0 {
		t.renderDist = in.RenderDistance
	}
	if n := t.graph.RegionCount(); cap(t.cur) < n {
		t.cur, t.next = make([]token, 0, n), make([]token, 0, n)
	}
	if assertionsEnabled {
		t.seen = make([]bool, t.graph.RegionCount())
	}

	t.prepareRaster(view)
	t.seed(view)

	for popped := 0; ; popped++ {
		if t.head == len(t.cur) {
			if len(t.next) == 0 {
				return true
			}
			t.cur, t.next = t.next, t.cur[:0]
			t.head = 0
		}
		if t.cancelled.Load() {
			return false
		}
		if popped%ctxCheckInterval == 0 && ctx.Err() != nil {
			return false
		}
		tok := t.cur[t.head]
		t.head++
		t.visit(view, tok)
	}
}

// prepareRaster clears the occluder when the camera moved or turned since
// the raster was drawn, or when InvalidateRaster was called. Otherwise the
// previous pass's coverage and every region's cached result stay valid.
func (t *Traversal) prepareRaster(view *ViewState) {
	stale := t.rasterStale.Swap(false)
	if !stale && t.rasterValid && view.PositionVersion() == t.rasterPos && view.ViewVersion() == t.rasterView {
		return
	}
	t.occ.PrepareScene(view.Matrix(), view.Position())
	t.rasterValid = true
	t.rasterPos = view.PositionVersion()
	t.rasterView = view.ViewVersion()
	t.stats.Cleared = true
}

func (t *Traversal) seed(view *ViewState) {
	cam := t.camRegion
	if i := t.graph.RegionAt(cam[0], cam[1], cam[2]); i != NoRegion {
		t.graph.State(i).FrameStamp = t.frame
		t.cur = append(t.cur, newToken(i, FaceNone, 0))
		return
	}

	// The camera is outside the loaded world: start from the closest layer,
	// nearest regions first.
	minX, minY, minZ, maxX, maxY, maxZ := t.graph.Bounds()
	layer := min(max(cam[1], minY), maxY)
	entry, backtrack := FaceNone, uint8(0)
	if cam[1] > maxY {
		entry, backtrack = FaceUp, 1<<FaceDown
	} else if cam[1] < minY {
		entry, backtrack = FaceDown, 1<<FaceUp
	}

	t.seeds.Reset()
	eye := view.Position()
	for x := max(cam[0]-t.renderDist, minX); x <= min(cam[0]+t.renderDist, maxX); x++ {
		for z := max(cam[2]-t.renderDist, minZ); z <= min(cam[2]+t.renderDist, maxZ); z++ {
			i := t.graph.RegionAt(x, layer, z)
			if i == NoRegion {
				continue
			}
			center := RegionCenter(x, layer, z)
			if !view.Planes().IsRegionVisible(center) {
				continue
			}
			t.seeds.Insert(i, center.Sub(eye).LenSqr())
		}
	}
	for !t.seeds.IsEmpty() {
		i := t.seeds.Take()
		t.graph.State(i).FrameStamp = t.frame
		t.cur = append(t.cur, newToken(i, entry, backtrack))
	}
}

func (t *Traversal) visit(view *ViewState, tok token) {
	g := t.graph
	i := tok.region()
	t.stats.Popped++
	if assertionsEnabled {
		if t.seen[i] {
			panic(fmt.Sprintf("region %d visited twice in frame %d", i, t.frame))
		}
		t.seen[i] = true
	}

	x, y, z := g.RegionCoords(i)
	if !view.Planes().IsRegionVisible(RegionCenter(x, y, z)) || !t.inRenderDistance(x, z) || !g.ShouldBuild(i) {
		t.stats.Rejected++
		return
	}

	payload, stale := g.BuildData(i)
	if payload == nil {
		t.needsBuild = append(t.needsBuild, i)
		t.stats.Deferred++
		return
	}
	if stale {
		t.needsBuild = append(t.needsBuild, i)
	}
	if payload.IsEmpty() {
		t.stats.PassedThrough++
		t.enqueueNeighbors(tok, payload)
		return
	}

	st := g.State(i)
	dist := t.distance(x, y, z)
	version := t.occ.Version()
	switch {
	case dist <= t.cfg.NearDistance:
		t.stats.Near++
		st.OccluderVersion, st.OccluderResult = version, true
		t.draw(payload, x, y, z, dist)
	case st.OccluderVersion == version:
		// a hit implies the raster was not cleared this pass, so the
		// region's boxes are already in it
		t.stats.CacheHits++
		if !st.OccluderResult {
			return
		}
	default:
		t.stats.Rasterized++
		visible := t.occ.IsVisible(regionBox(x, y, z))
		st.OccluderVersion, st.OccluderResult = version, visible
		if !visible {
			t.stats.Culled++
			return
		}
		t.draw(payload, x, y, z, dist)
	}

	t.visible = append(t.visible, i)
	t.enqueueNeighbors(tok, payload)
}

// draw rasterises the region's solid sub-boxes whose tier still matters at
// this distance.
func (t *Traversal) draw(p *OcclusionPayload, x, y, z, dist int32) {
	for _, b := range p.Boxes {
		if dist > t.cfg.TierRanges[b.Tier()] {
			// boxes are sorted by tier, lower tiers have shorter ranges
			break
		}
		t.occ.Occlude(b.World(x, y, z))
	}
}

func (t *Traversal) enqueueNeighbors(tok token, p *OcclusionPayload) {
	g := t.graph
	i := tok.region()
	exits := p.Visibility.Exits(tok.entry())
	for f := Face(0); f < FaceCount; f++ {
		if exits&(1<<f) == 0 || !tok.allows(f) {
			continue
		}
		n := g.Neighbor(i, f)
		if n == NoRegion {
			continue
		}
		st := g.State(n)
		if st.FrameStamp == t.frame {
			continue
		}
		st.FrameStamp = t.frame
		t.next = append(t.next, tok.step(n, f))
	}
}

func (t *Traversal) inRenderDistance(x, z int32) bool {
	return abs32(x-t.camRegion[0]) <= t.renderDist && abs32(z-t.camRegion[2]) <= t.renderDist
}

// distance is the Chebyshev distance to the camera's region.
func (t *Traversal) distance(x, y, z int32) int32 {
	return max(abs32(x-t.camRegion[0]), abs32(y-t.camRegion[1]), abs32(z-t.camRegion[2]))
}

func regionBox(x, y, z int32) Box {
	h := mgl32.Vec3{regionHalfSize, regionHalfSize, regionHalfSize}
	c := RegionCenter(x, y, z)
	return Box{Min: c.Sub(h), Max: c.Add(h)}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
