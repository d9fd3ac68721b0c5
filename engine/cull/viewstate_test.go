package cull

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

var testLens = Lens{FovY: 70, Aspect: 1, Near: 0.1, Far: 1000}

func TestViewStateVersions(t *testing.T) {
	v := NewViewState(5)
	require.Zero(t, v.PositionVersion())
	require.Zero(t, v.ViewVersion())

	v.Update(mgl32.Vec3{8, 8, 8}, 0, 0, testLens)
	require.Equal(t, uint64(1), v.PositionVersion())
	require.Equal(t, uint64(1), v.ViewVersion())

	tests := []struct {
		name         string
		pos          mgl32.Vec3
		pitch, yaw   float32
		lens         Lens
		positionBump bool
		viewBump     bool
	}{
		{name: "unchanged", pos: mgl32.Vec3{8, 8, 8}, lens: testLens},
		{name: "tiny move", pos: mgl32.Vec3{8.05, 8, 8}, lens: testLens},
		{name: "move within region", pos: mgl32.Vec3{9, 8, 8}, lens: testLens, positionBump: true},
		{name: "rotation within padding", pos: mgl32.Vec3{9, 8, 8}, pitch: 3, yaw: -4, lens: testLens},
		{name: "rotation past padding", pos: mgl32.Vec3{9, 8, 8}, yaw: 10, lens: testLens, viewBump: true},
		{name: "lens change", pos: mgl32.Vec3{9, 8, 8}, yaw: 10, lens: Lens{FovY: 90, Aspect: 1, Near: 0.1, Far: 1000}, viewBump: true},
		{name: "region change", pos: mgl32.Vec3{16.01, 8, 8}, yaw: 10, lens: Lens{FovY: 90, Aspect: 1, Near: 0.1, Far: 1000}, positionBump: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pos, view := v.PositionVersion(), v.ViewVersion()
			v.Update(test.pos, test.pitch, test.yaw, test.lens)
			if test.positionBump {
				pos++
			}
			if test.viewBump {
				view++
			}
			require.Equal(t, pos, v.PositionVersion())
			require.Equal(t, view, v.ViewVersion())
		})
	}
}

func TestViewStateYawWraps(t *testing.T) {
	v := NewViewState(5)
	v.Update(mgl32.Vec3{}, 0, 359, testLens)
	v.Update(mgl32.Vec3{}, 0, 1, testLens)
	require.Equal(t, uint64(1), v.ViewVersion())

	v.Update(mgl32.Vec3{}, 0, -170, testLens)
	require.Equal(t, uint64(2), v.ViewVersion())
}

func TestViewStateCameraRegion(t *testing.T) {
	v := NewViewState(0)
	v.Update(mgl32.Vec3{-0.5, 31.9, 32}, 0, 0, testLens)
	require.Equal(t, [3]int32{-1, 1, 2}, v.CameraRegion())
	require.Equal(t, [3]int32{-1, 31, 32}, v.CameraBlock())
}

func TestViewStateSnapshotIsIndependent(t *testing.T) {
	v := NewViewState(0)
	v.Update(mgl32.Vec3{8, 8, 8}, 0, 0, testLens)
	snap := v.Snapshot()

	v.Update(mgl32.Vec3{100, 8, 8}, 20, 90, testLens)
	require.Equal(t, mgl32.Vec3{8, 8, 8}, snap.Position())
	require.Equal(t, uint64(1), snap.ViewVersion())
	require.NotEqual(t, snap.Matrix(), v.Matrix())
}

func TestViewStatePaddingWidensFrustum(t *testing.T) {
	tight := NewViewState(0)
	padded := NewViewState(10)
	tight.Update(mgl32.Vec3{}, 0, -90, testLens)
	padded.Update(mgl32.Vec3{}, 0, -90, testLens)

	// about 40 degrees off axis: outside the unpadded 35 degree half angle
	center := mgl32.Vec3{170, 0, -200}
	require.False(t, tight.Planes().IsRegionVisible(center))
	require.True(t, padded.Planes().IsRegionVisible(center))
}

func TestViewStatePaddingWidensWideLens(t *testing.T) {
	wide := Lens{FovY: 70, Aspect: 2, Near: 0.1, Far: 1000}
	eye := mgl32.Vec3{8, 8, 8}
	v := NewViewState(5)
	v.Update(eye, 0, 0, wide)
	v.Update(eye, 0, 4.9, wide)
	require.Equal(t, uint64(1), v.ViewVersion())

	// the real horizontal half angle is atan(2*tan(35)), about 54.5 degrees;
	// at yaw 4.9 a point 59.3 degrees off +X is on screen
	small := mgl32.Vec3{0.01, 0.01, 0.01}
	at := func(deg float64) mgl32.Vec3 {
		a := float64(mgl32.DegToRad(float32(deg)))
		return eye.Add(mgl32.Vec3{float32(math.Cos(a)), 0, float32(math.Sin(a))}.Mul(100))
	}
	p := at(59.3)
	require.True(t, v.Planes().IsBoxVisible(p.Sub(small), p.Add(small)))
	p = at(61)
	require.False(t, v.Planes().IsBoxVisible(p.Sub(small), p.Add(small)))
}

func TestPaddedLens(t *testing.T) {
	for _, tc := range []struct {
		name    string
		lens    Lens
		padding float32
		halfX   float64
		halfY   float64
	}{
		{"square", Lens{FovY: 70, Aspect: 1}, 10, 45, 45},
		{"wide", Lens{FovY: 70, Aspect: 2}, 5, 59.46, 40},
		{"no padding", Lens{FovY: 60, Aspect: 1.5}, 0, 40.89, 30},
		{"capped", Lens{FovY: 160, Aspect: 2}, 10, 85, 85},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := paddedLens(tc.lens, tc.padding)
			halfY := float64(l.FovY) / 2
			halfX := float64(mgl32.RadToDeg(float32(math.Atan(math.Tan(float64(mgl32.DegToRad(l.FovY))/2) * float64(l.Aspect)))))
			require.InDelta(t, tc.halfY, halfY, 0.05)
			require.InDelta(t, tc.halfX, halfX, 0.05)
		})
	}
}
