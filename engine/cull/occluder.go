package cull

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Box is an axis-aligned box in world space.
type Box struct {
	Min, Max mgl32.Vec3
}

func (b Box) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b Box) corner(i int) mgl32.Vec3 {
	c := b.Min
	if i&1 != 0 {
		c[0] = b.Max[0]
	}
	if i&2 != 0 {
		c[1] = b.Max[1]
	}
	if i&4 != 0 {
		c[2] = b.Max[2]
	}
	return c
}

const (
	// corners closer than this (in clip w) count as behind the camera
	wEpsilon = 1e-5
	// corners projecting further off screen than this are not rasterised
	maxNDC = 256
)

// clip space outcodes
const (
	outLeft uint8 = 1 << iota
	outRight
	outBottom
	outTop
	outNear
	outFar
	outBehind
)

// Corner indices are x | y<<1 | z<<2 with 0 = min and 1 = max. Each face
// lists its corners around the perimeter.
var faceCorners = [FaceCount][4]int{
	FaceDown:  {0, 1, 5, 4},
	FaceUp:    {2, 3, 7, 6},
	FaceNorth: {0, 1, 3, 2},
	FaceSouth: {4, 5, 7, 6},
	FaceWest:  {0, 2, 6, 4},
	FaceEast:  {1, 3, 7, 5},
}

// projectedBox is the screen space footprint of a box for the current
// scene matrix.
type projectedBox struct {
	px, py [8]int64
	ok     [8]bool // in front of the camera and within maxNDC

	outside uint8 // outcodes shared by all corners
}

func (p *projectedBox) inFrustum() bool {
	return p.outside == 0
}

func (p *projectedBox) faceOK(f Face) bool {
	q := &faceCorners[f]
	return p.ok[q[0]] && p.ok[q[1]] && p.ok[q[2]] && p.ok[q[3]]
}

type OccluderStats struct {
	Tests  uint64
	Draws  uint64
	Scenes uint64
}

// Occluder is a coarse software rasteriser answering whether any part of a
// box's silhouette is still uncovered by the boxes drawn before it. It is
// owned by a single traversal; nothing in it is safe for concurrent use.
type Occluder struct {
	raster       coverage
	halfW, halfH float32
	mvp          mgl32.Mat4
	viewpoint    mgl32.Vec3
	version      uint64
	proj         projectedBox
	stats        OccluderStats
}

func NewOccluder(width, height int) (*Occluder, error) {
	if !isPowerOfTwo(width) || !isPowerOfTwo(height) {
		return nil, errors.Errorf("raster size %dx%d: dimensions must be powers of two", width, height)
	}
	return &Occluder{
		raster: newCoverage(width, height),
		halfW:  float32(width / 2),
		halfH:  float32(height / 2),
		mvp:    mgl32.Ident4(),
	}, nil
}

// PrepareScene starts a new raster epoch: it stores the matrix and the
// viewpoint, clears the coverage and advances Version.
func (o *Occluder) PrepareScene(mvp mgl32.Mat4, viewpoint mgl32.Vec3) {
	o.mvp = mvp
	o.viewpoint = viewpoint
	o.raster.clear()
	o.version++
	o.stats.Scenes++
}

// Version identifies the current raster epoch. It is zero until the first
// PrepareScene.
func (o *Occluder) Version() uint64 {
	return o.version
}

func (o *Occluder) Size() (width, height int) {
	return o.raster.width, o.raster.height
}

func (o *Occluder) Stats() OccluderStats {
	return o.stats
}

// Coverage returns the number of set pixels.
func (o *Occluder) Coverage() int {
	return o.raster.count()
}

func (o *Occluder) Image() *image.Gray {
	return o.raster.image()
}

func (o *Occluder) computeProjectedBoxBounds(b Box) *projectedBox {
	p := &o.proj
	p.outside = 0xff

	for i := 0; i < 8; i++ {
		c := b.corner(i)
		v := o.mvp.Mul4x1(mgl32.Vec4{c[0], c[1], c[2], 1})
		x, y, z, w := v[0], v[1], v[2], v[3]

		var code uint8
		if x < -w {
			code |= outLeft
		}
		if x > w {
			code |= outRight
		}
		if y < -w {
			code |= outBottom
		}
		if y > w {
			code |= outTop
		}
		if z < -w {
			code |= outNear
		}
		if z > w {
			code |= outFar
		}
		if w <= wEpsilon {
			code |= outBehind
		}
		p.outside &= code

		p.ok[i] = false
		if w <= wEpsilon {
			continue
		}
		nx, ny := x/w, y/w
		if mgl32.Abs(nx) > maxNDC || mgl32.Abs(ny) > maxNDC {
			continue
		}
		p.px[i] = int64(o.halfW) + int64(math.Floor(float64(nx*o.halfW)))
		p.py[i] = int64(o.halfH) + int64(math.Floor(float64(ny*o.halfH)))
		p.ok[i] = true
	}
	return p
}

func (o *Occluder) facesViewpoint(f Face, b Box) bool {
	v := o.viewpoint
	switch f {
	case FaceDown:
		return v[1] < b.Min[1]
	case FaceUp:
		return v[1] > b.Max[1]
	case FaceNorth:
		return v[2] < b.Min[2]
	case FaceSouth:
		return v[2] > b.Max[2]
	case FaceWest:
		return v[0] < b.Min[0]
	case FaceEast:
		return v[0] > b.Max[0]
	}
	return false
}

// IsVisible reports whether some pixel of the box's silhouette is not yet
// covered. Faces that cannot be rasterised safely (corners behind the
// camera or absurdly far off screen) make the box count as visible.
func (o *Occluder) IsVisible(b Box) bool {
	o.stats.Tests++
	p := o.computeProjectedBoxBounds(b)
	if !p.inFrustum() {
		return false
	}
	if b.Contains(o.viewpoint) {
		return true
	}
	for f := Face(0); f < FaceCount; f++ {
		if !o.facesViewpoint(f, b) {
			continue
		}
		if !p.faceOK(f) {
			return true
		}
		if o.quad(p, f, true) {
			return true
		}
	}
	return false
}

// Occlude marks the box's silhouette as covered. Only faces that pass the
// same guard as IsVisible are drawn, so the raster never claims coverage it
// cannot prove.
func (o *Occluder) Occlude(b Box) {
	o.stats.Draws++
	p := o.computeProjectedBoxBounds(b)
	if !p.inFrustum() {
		return
	}
	for f := Face(0); f < FaceCount; f++ {
		if !o.facesViewpoint(f, b) || !p.faceOK(f) {
			continue
		}
		o.quad(p, f, false)
	}
}

func (o *Occluder) quad(p *projectedBox, f Face, test bool) bool {
	q := &faceCorners[f]
	a, b, c, d := q[0], q[1], q[2], q[3]
	if o.tri(p.px[a], p.py[a], p.px[b], p.py[b], p.px[c], p.py[c], test) && test {
		return true
	}
	return o.tri(p.px[a], p.py[a], p.px[c], p.py[c], p.px[d], p.py[d], test) && test
}

// tri rasterises a triangle with integer edge functions. A pixel belongs to
// the triangle when all three edge values are non-negative after the
// winding has been made counter-clockwise. With test set it returns true at
// the first covered pixel that is not yet set; otherwise it sets every
// covered pixel and returns false.
func (o *Occluder) tri(x0, y0, x1, y1, x2, y2 int64, test bool) bool {
	area := (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
	if area == 0 {
		// a sliver thinner than a pixel still shows through its corners
		return test && (o.uncovered(x0, y0) || o.uncovered(x1, y1) || o.uncovered(x2, y2))
	}
	if area < 0 {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}

	minX := max(min(x0, x1, x2), 0)
	maxX := min(max(x0, x1, x2), int64(o.raster.width-1))
	minY := max(min(y0, y1, y2), 0)
	maxY := min(max(y0, y1, y2), int64(o.raster.height-1))
	if minX > maxX || minY > maxY {
		return false
	}

	// E(p) = a*(px-vx) + b*(py-vy) for each edge, stepped incrementally
	a01, b01 := y0-y1, x1-x0
	a12, b12 := y1-y2, x2-x1
	a20, b20 := y2-y0, x0-x2

	w0Row := a12*(minX-x1) + b12*(minY-y1)
	w1Row := a20*(minX-x2) + b20*(minY-y2)
	w2Row := a01*(minX-x0) + b01*(minY-y0)

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		for x := minX; x <= maxX; x++ {
			if w0|w1|w2 >= 0 {
				if test {
					if !o.raster.get(int(x), int(y)) {
						return true
					}
				} else {
					o.raster.set(int(x), int(y))
				}
			}
			w0 += a12
			w1 += a20
			w2 += a01
		}
		w0Row += b12
		w1Row += b20
		w2Row += b01
	}
	return false
}

func (o *Occluder) uncovered(x, y int64) bool {
	if x < 0 || y < 0 || x >= int64(o.raster.width) || y >= int64(o.raster.height) {
		return false
	}
	return !o.raster.get(int(x), int(y))
}
