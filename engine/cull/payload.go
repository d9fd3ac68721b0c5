package cull

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type RangeTier uint8

const (
	TierNear RangeTier = iota
	TierMid
	TierFar
	TierExtreme
)

func (t RangeTier) String() string {
	switch t {
	case TierNear:
		return "near"
	case TierMid:
		return "mid"
	case TierFar:
		return "far"
	}
	return "extreme"
}

// PackedBox is a region-local box with coordinates in [0, RegionSize]:
// six 5-bit coordinates (x0 y0 z0 x1 y1 z1, low bits first) followed by a
// 2-bit range tier.
type PackedBox uint32

const (
	packedCoordBits = 5
	packedCoordMask = 1<<packedCoordBits - 1
	packedTierShift = 6 * packedCoordBits
)

func PackBox(x0, y0, z0, x1, y1, z1 int32, tier RangeTier) PackedBox {
	clamp := func(v int32) uint32 {
		if v < 0 {
			return 0
		}
		if v > RegionSize {
			return RegionSize
		}
		return uint32(v)
	}
	return PackedBox(clamp(x0) |
		clamp(y0)<<5 |
		clamp(z0)<<10 |
		clamp(x1)<<15 |
		clamp(y1)<<20 |
		clamp(z1)<<25 |
		uint32(tier&3)<<packedTierShift)
}

func (b PackedBox) coord(i uint) int32 {
	return int32(uint32(b) >> (i * packedCoordBits) & packedCoordMask)
}

func (b PackedBox) Min() (x, y, z int32) {
	return b.coord(0), b.coord(1), b.coord(2)
}

func (b PackedBox) Max() (x, y, z int32) {
	return b.coord(3), b.coord(4), b.coord(5)
}

func (b PackedBox) Tier() RangeTier {
	return RangeTier(uint32(b) >> packedTierShift & 3)
}

func (b PackedBox) IsEmpty() bool {
	x0, y0, z0 := b.Min()
	x1, y1, z1 := b.Max()
	return x1 <= x0 || y1 <= y0 || z1 <= z0
}

// World converts the box to world space for a region at the given region
// coordinates.
func (b PackedBox) World(rx, ry, rz int32) Box {
	ox, oy, oz := float32(rx*RegionSize), float32(ry*RegionSize), float32(rz*RegionSize)
	x0, y0, z0 := b.Min()
	x1, y1, z1 := b.Max()
	return Box{
		Min: mgl32.Vec3{ox + float32(x0), oy + float32(y0), oz + float32(z0)},
		Max: mgl32.Vec3{ox + float32(x1), oy + float32(y1), oz + float32(z1)},
	}
}

// VisibilityMask records, for every entry face, the faces a ray can leave
// through without hitting solid geometry. Bit from*6+to.
type VisibilityMask uint64

const allFacesVisible VisibilityMask = 1<<(FaceCount*FaceCount) - 1

func (m VisibilityMask) Connected(from, to Face) bool {
	return m&(1<<(uint(from)*FaceCount+uint(to))) != 0
}

func (m VisibilityMask) Connect(from, to Face) VisibilityMask {
	return m | 1<<(uint(from)*FaceCount+uint(to)) | 1<<(uint(to)*FaceCount+uint(from))
}

// Exits returns the faces reachable from the entry face as a 6-bit set.
// FaceNone (the camera's own region) reaches every face.
func (m VisibilityMask) Exits(from Face) uint8 {
	if from >= FaceCount {
		return 1<<FaceCount - 1
	}
	return uint8(m >> (uint(from) * FaceCount) & (1<<FaceCount - 1))
}

// OcclusionPayload is the per-region occlusion data produced by the mesher.
type OcclusionPayload struct {
	Bounds     PackedBox
	Visibility VisibilityMask
	// Boxes are fully solid sub-boxes sorted by tier, highest first.
	Boxes []PackedBox
}

// EmptyPayload marks a region without any occluding geometry. Compare by
// pointer.
var EmptyPayload = &OcclusionPayload{Visibility: allFacesVisible}

func (p *OcclusionPayload) IsEmpty() bool {
	return p == EmptyPayload
}

const payloadHeaderSize = 4 + 8

var ErrMalformedPayload = errors.New("malformed occlusion payload")

// Encode writes the payload as bounds (u32), visibility (u64) and the
// sub-boxes (u32 each), little endian.
func (p *OcclusionPayload) Encode() []byte {
	buf := make([]byte, payloadHeaderSize+4*len(p.Boxes))
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.Bounds))
	binary.LittleEndian.PutUint64(buf[4:], uint64(p.Visibility))
	for i, b := range p.Boxes {
		binary.LittleEndian.PutUint32(buf[payloadHeaderSize+4*i:], uint32(b))
	}
	return buf
}

func DecodeOcclusionPayload(data []byte) (*OcclusionPayload, error) {
	if len(data) < payloadHeaderSize || (len(data)-payloadHeaderSize)%4 != 0 {
		return nil, errors.Wrapf(ErrMalformedPayload, "length %d", len(data))
	}
	p := &OcclusionPayload{
		Bounds:     PackedBox(binary.LittleEndian.Uint32(data[0:])),
		Visibility: VisibilityMask(binary.LittleEndian.Uint64(data[4:])),
	}
	if p.Visibility&^allFacesVisible != 0 {
		return nil, errors.Wrapf(ErrMalformedPayload, "visibility mask %#x", uint64(p.Visibility))
	}
	n := (len(data) - payloadHeaderSize) / 4
	if n == 0 && p.Bounds.IsEmpty() && p.Visibility == allFacesVisible {
		return EmptyPayload, nil
	}
	if n > 0 {
		p.Boxes = make([]PackedBox, n)
		for i := range p.Boxes {
			p.Boxes[i] = PackedBox(binary.LittleEndian.Uint32(data[payloadHeaderSize+4*i:]))
		}
	}
	return p, nil
}
