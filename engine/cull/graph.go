package cull

// RegionSize is the edge length of a region in blocks.
const RegionSize = 16

const regionHalfSize = float32(RegionSize) / 2

// NoRegion marks a missing neighbour or an unloaded slot.
const NoRegion int32 = -1

type Face uint8

const (
	FaceDown  Face = iota // -y
	FaceUp                // +y
	FaceNorth             // -z
	FaceSouth             // +z
	FaceWest              // -x
	FaceEast              // +x

	FaceCount = 6
	FaceNone  Face = 7
)

var faceOffsets = [FaceCount][3]int32{
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
	{-1, 0, 0},
	{1, 0, 0},
}

func (f Face) Opposite() Face {
	return f ^ 1
}

func (f Face) Offset() (dx, dy, dz int32) {
	o := faceOffsets[f]
	return o[0], o[1], o[2]
}

func (f Face) String() string {
	switch f {
	case FaceDown:
		return "down"
	case FaceUp:
		return "up"
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceWest:
		return "west"
	case FaceEast:
		return "east"
	}
	return "none"
}

// RegionState holds the per-region slots the traversal writes. Storage owns
// the value; the traversal only touches it through RegionGraph.State.
type RegionState struct {
	FrameStamp      uint64
	OccluderVersion uint64
	OccluderResult  bool
}

// Invalidate forgets the cached occlusion result, e.g. after the region's
// payload was rebuilt.
func (s *RegionState) Invalidate() {
	s.OccluderVersion = 0
	s.OccluderResult = false
}

// RegionGraph is the view of region storage the traversal consumes.
// Region indices are dense in [0, RegionCount).
type RegionGraph interface {
	RegionCount() int
	// RegionAt returns the loaded region at region coordinates, or NoRegion.
	RegionAt(x, y, z int32) int32
	RegionCoords(i int32) (x, y, z int32)
	// Bounds returns the lowest and highest region coordinates that can hold
	// a region.
	Bounds() (minX, minY, minZ, maxX, maxY, maxZ int32)
	Neighbor(i int32, f Face) int32
	ShouldBuild(i int32) bool
	// BuildData returns the region's occlusion payload, nil while it has
	// never been built. stale reports that the payload no longer matches the
	// region's contents and should be rebuilt.
	BuildData(i int32) (payload *OcclusionPayload, stale bool)
	State(i int32) *RegionState
}
