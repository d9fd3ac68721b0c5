package cull

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a normalised plane equation with an inward pointing normal and
// the precomputed projection radius of a region sized box onto the normal.
type Plane struct {
	A, B, C, D float32
	Extent     float32
}

func (p Plane) distance(x, y, z float32) float32 {
	return p.A*x + p.B*y + p.C*z + p.D
}

// PlaneSet is the six clip planes of a view frustum, ordered left, right,
// bottom, top, near, far.
type PlaneSet [6]Plane

// ExtractPlanes derives the frustum planes from a combined
// projection*view matrix. halfSize is the half edge length of the boxes
// IsRegionVisible will be asked about.
func ExtractPlanes(mvp mgl32.Mat4, halfSize float32) PlaneSet {
	// mgl32 matrices are column major
	m00, m01, m02, m03 := mvp[0], mvp[4], mvp[8], mvp[12]
	m10, m11, m12, m13 := mvp[1], mvp[5], mvp[9], mvp[13]
	m20, m21, m22, m23 := mvp[2], mvp[6], mvp[10], mvp[14]
	m30, m31, m32, m33 := mvp[3], mvp[7], mvp[11], mvp[15]

	var ps PlaneSet
	ps[0] = newPlane(m30+m00, m31+m01, m32+m02, m33+m03, halfSize)
	ps[1] = newPlane(m30-m00, m31-m01, m32-m02, m33-m03, halfSize)
	ps[2] = newPlane(m30+m10, m31+m11, m32+m12, m33+m13, halfSize)
	ps[3] = newPlane(m30-m10, m31-m11, m32-m12, m33-m13, halfSize)
	ps[4] = newPlane(m30+m20, m31+m21, m32+m22, m33+m23, halfSize)
	ps[5] = newPlane(m30-m20, m31-m21, m32-m22, m33-m23, halfSize)
	return ps
}

func newPlane(a, b, c, d, halfSize float32) Plane {
	l := float32(math.Sqrt(float64(a*a + b*b + c*c)))
	if l != 0 {
		a, b, c, d = a/l, b/l, c/l, d/l
	}
	return Plane{
		A: a, B: b, C: c, D: d,
		Extent: halfSize * (mgl32.Abs(a) + mgl32.Abs(b) + mgl32.Abs(c)),
	}
}

// IsRegionVisible reports whether the region centred on center is not fully
// outside any plane. Boxes touching a plane count as visible.
func (ps *PlaneSet) IsRegionVisible(center mgl32.Vec3) bool {
	x, y, z := center[0], center[1], center[2]
	for i := range ps {
		p := &ps[i]
		if p.distance(x, y, z)+p.Extent < 0 {
			return false
		}
	}
	return true
}

// IsBoxVisible is the exact positive-vertex test for an arbitrary
// axis-aligned box.
func (ps *PlaneSet) IsBoxVisible(min, max mgl32.Vec3) bool {
	for i := range ps {
		p := &ps[i]
		px, py, pz := max[0], max[1], max[2]
		if p.A < 0 {
			px = min[0]
		}
		if p.B < 0 {
			py = min[1]
		}
		if p.C < 0 {
			pz = min[2]
		}
		if p.distance(px, py, pz) < 0 {
			return false
		}
	}
	return true
}

// RegionCenter returns the world space centre of the region at the given
// region coordinates.
func RegionCenter(rx, ry, rz int32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(rx*RegionSize) + regionHalfSize,
		float32(ry*RegionSize) + regionHalfSize,
		float32(rz*RegionSize) + regionHalfSize,
	}
}
