package cull

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// positionEpsilonSq is the squared camera displacement that counts as a move.
const positionEpsilonSq = 0.01

// Lens describes the camera projection. FovY is in degrees.
type Lens struct {
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

func (l Lens) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(l.FovY), l.Aspect, l.Near, l.Far)
}

// ViewState tracks the camera pose between frames and exposes version
// counters that let consumers skip work while nothing relevant changed.
// It holds no pointers: assigning it copies it.
type ViewState struct {
	padding float32

	position     mgl32.Vec3
	region       [3]int32
	pitch, yaw   float32
	lens         Lens
	initialized  bool
	planes       PlaneSet
	mvp          mgl32.Mat4
	positionVers uint64
	viewVers     uint64
}

// NewViewState creates a tracker that tolerates rotations of up to padding
// degrees before advancing the view version.
func NewViewState(padding float32) ViewState {
	if padding < 0 {
		padding = 0
	}
	return ViewState{padding: padding}
}

// Update feeds the current camera pose. pitch and yaw are in degrees, yaw
// measured from +X towards +Z like util.FPSCamera.
func (v *ViewState) Update(position mgl32.Vec3, pitch, yaw float32, lens Lens) {
	region := blockToRegion(position)
	if !v.initialized {
		v.initialized = true
		v.position, v.region = position, region
		v.pitch, v.yaw, v.lens = pitch, yaw, lens
		v.positionVers++
		v.viewVers++
		v.rebuild()
		return
	}

	moved := false
	if region != v.region || position.Sub(v.position).LenSqr() > positionEpsilonSq {
		v.position, v.region = position, region
		v.positionVers++
		moved = true
	}

	rotated := mgl32.Abs(pitch-v.pitch) > v.padding || mgl32.Abs(angleDelta(yaw, v.yaw)) > v.padding
	if rotated || lens != v.lens {
		v.pitch, v.yaw, v.lens = pitch, yaw, lens
		v.viewVers++
		v.rebuild()
		return
	}
	if moved {
		v.rebuild()
	}
}

func (v *ViewState) rebuild() {
	proj := paddedLens(v.lens, v.padding)
	front := lookDirection(mgl32.Clamp(v.pitch, -89, 89), v.yaw)
	view := mgl32.LookAtV(v.position, v.position.Add(front), mgl32.Vec3{0, 1, 0})
	v.mvp = proj.Projection().Mul4(view)
	v.planes = ExtractPlanes(v.mvp, regionHalfSize)
}

// maxPaddedHalfAngle caps each padded half angle, in degrees.
const maxPaddedHalfAngle = 85

// paddedLens widens both the vertical and the horizontal half angle of l by
// padding degrees, so any rotation smaller than padding keeps the real view
// inside the padded one.
func paddedLens(l Lens, padding float32) Lens {
	if padding <= 0 {
		return l
	}
	pad := float64(mgl32.DegToRad(padding))
	limit := float64(mgl32.DegToRad(maxPaddedHalfAngle))
	halfY := float64(mgl32.DegToRad(l.FovY)) / 2
	halfX := math.Atan(math.Tan(halfY) * float64(l.Aspect))

	halfY = min(halfY+pad, limit)
	halfX = min(halfX+pad, limit)
	l.FovY = mgl32.RadToDeg(float32(2 * halfY))
	l.Aspect = float32(math.Tan(halfX) / math.Tan(halfY))
	return l
}

// Snapshot returns a frozen copy for use on another goroutine.
func (v *ViewState) Snapshot() ViewState {
	return *v
}

func (v *ViewState) Planes() *PlaneSet {
	return &v.planes
}

// Matrix is the padded projection*view matrix used for frustum and
// occlusion tests.
func (v *ViewState) Matrix() mgl32.Mat4 {
	return v.mvp
}

func (v *ViewState) Position() mgl32.Vec3 {
	return v.position
}

// CameraBlock returns the integer block position of the camera.
func (v *ViewState) CameraBlock() [3]int32 {
	return [3]int32{
		int32(math.Floor(float64(v.position[0]))),
		int32(math.Floor(float64(v.position[1]))),
		int32(math.Floor(float64(v.position[2]))),
	}
}

// CameraRegion returns the region coordinates containing the camera.
func (v *ViewState) CameraRegion() [3]int32 {
	return v.region
}

func (v *ViewState) PositionVersion() uint64 {
	return v.positionVers
}

func (v *ViewState) ViewVersion() uint64 {
	return v.viewVers
}

func lookDirection(pitch, yaw float32) mgl32.Vec3 {
	p, y := float64(mgl32.DegToRad(pitch)), float64(mgl32.DegToRad(yaw))
	return mgl32.Vec3{
		float32(math.Cos(p) * math.Cos(y)),
		float32(math.Sin(p)),
		float32(math.Cos(p) * math.Sin(y)),
	}.Normalize()
}

// angleDelta returns a-b wrapped into [-180, 180).
func angleDelta(a, b float32) float32 {
	d := math.Mod(float64(a-b)+180, 360)
	if d < 0 {
		d += 360
	}
	return float32(d - 180)
}

func blockToRegion(p mgl32.Vec3) [3]int32 {
	return [3]int32{
		int32(math.Floor(float64(p[0]) / RegionSize)),
		int32(math.Floor(float64(p[1]) / RegionSize)),
		int32(math.Floor(float64(p[2]) / RegionSize)),
	}
}
