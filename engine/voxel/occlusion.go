package voxel

import (
	"slices"

	"github.com/memmaker/chunkcull/engine/cull"
)

// maxOcclusionBoxes caps the number of solid sub-boxes per chunk; the
// largest ones are kept.
const maxOcclusionBoxes = 64

// BuildOcclusion computes the occlusion payload of a chunk: the bounds of
// its non-air blocks, which faces can see each other through it, and a set
// of fully opaque boxes the rasteriser can draw.
func BuildOcclusion(c *Chunk) *cull.OcclusionPayload {
	h := c.helper()
	h.Reset()

	var nonAir int
	minX, minY, minZ := CHUNK_SIZE, CHUNK_SIZE, CHUNK_SIZE
	maxX, maxY, maxZ := int32(-1), int32(-1), int32(-1)
	for k := int32(0); k < CHUNK_SIZE; k++ {
		for j := int32(0); j < CHUNK_SIZE; j++ {
			for i := int32(0); i < CHUNK_SIZE; i++ {
				b := c.data[blockIndex(i, j, k)]
				if b.IsAir() {
					continue
				}
				nonAir++
				minX, minY, minZ = min(minX, i), min(minY, j), min(minZ, k)
				maxX, maxY, maxZ = max(maxX, i), max(maxY, j), max(maxZ, k)
				if b.IsOpaque() {
					h.opaque.set(blockIndex(i, j, k))
				}
			}
		}
	}
	if nonAir == 0 {
		return cull.EmptyPayload
	}

	return &cull.OcclusionPayload{
		Bounds:     cull.PackBox(minX, minY, minZ, maxX+1, maxY+1, maxZ+1, cull.TierExtreme),
		Visibility: computeVisibility(h),
		Boxes:      greedyBoxes(h),
	}
}

func (c *Chunk) helper() *ChunkHelper {
	if c.m != nil {
		if c.m.helper == nil {
			c.m.helper = NewChunkHelper()
		}
		return c.m.helper
	}
	return NewChunkHelper()
}

// touchedFaces returns the chunk faces a cell lies on.
func touchedFaces(i, j, k int32) uint8 {
	var faces uint8
	if i == 0 {
		faces |= 1 << cull.FaceWest
	} else if i == CHUNK_SIZE-1 {
		faces |= 1 << cull.FaceEast
	}
	if j == 0 {
		faces |= 1 << cull.FaceDown
	} else if j == CHUNK_SIZE-1 {
		faces |= 1 << cull.FaceUp
	}
	if k == 0 {
		faces |= 1 << cull.FaceNorth
	} else if k == CHUNK_SIZE-1 {
		faces |= 1 << cull.FaceSouth
	}
	return faces
}

// computeVisibility flood fills every connected pocket of see-through cells
// and connects all faces each pocket touches.
func computeVisibility(h *ChunkHelper) cull.VisibilityMask {
	var mask cull.VisibilityMask
	for start := int32(0); start < CHUNK_SIZE_CUBED; start++ {
		if h.opaque.has(start) || h.visited.has(start) {
			continue
		}
		var faces uint8
		h.visited.set(start)
		h.stack = append(h.stack[:0], start)
		for len(h.stack) > 0 {
			cur := h.stack[len(h.stack)-1]
			h.stack = h.stack[:len(h.stack)-1]
			i, j, k := cur%CHUNK_SIZE, cur/CHUNK_SIZE%CHUNK_SIZE, cur/CHUNK_SIZE_SQUARED
			faces |= touchedFaces(i, j, k)
			for f := cull.Face(0); f < cull.FaceCount; f++ {
				dx, dy, dz := f.Offset()
				ni, nj, nk := i+dx, j+dy, k+dz
				if ni < 0 || ni >= CHUNK_SIZE || nj < 0 || nj >= CHUNK_SIZE || nk < 0 || nk >= CHUNK_SIZE {
					continue
				}
				n := blockIndex(ni, nj, nk)
				if h.opaque.has(n) || h.visited.has(n) {
					continue
				}
				h.visited.set(n)
				h.stack = append(h.stack, n)
			}
		}
		for from := cull.Face(0); from < cull.FaceCount; from++ {
			if faces&(1<<from) == 0 {
				continue
			}
			for to := cull.Face(0); to < cull.FaceCount; to++ {
				if faces&(1<<to) != 0 {
					mask = mask.Connect(from, to)
				}
			}
		}
	}
	return mask
}

type solidBox struct {
	x0, y0, z0, x1, y1, z1 int32
}

func (b solidBox) volume() int32 {
	return (b.x1 - b.x0) * (b.y1 - b.y0) * (b.z1 - b.z0)
}

func (b solidBox) tier() cull.RangeTier {
	extent := max(b.x1-b.x0, b.y1-b.y0, b.z1-b.z0)
	switch {
	case extent >= 12:
		return cull.TierExtreme
	case extent >= 8:
		return cull.TierFar
	case extent >= 4:
		return cull.TierMid
	}
	return cull.TierNear
}

// greedyBoxes merges opaque cells into boxes, growing along x, then z, then
// y.
func greedyBoxes(h *ChunkHelper) []cull.PackedBox {
	free := func(i, j, k int32) bool {
		idx := blockIndex(i, j, k)
		return h.opaque.has(idx) && !h.boxed.has(idx)
	}
	rowFree := func(x0, x1, j, k int32) bool {
		for i := x0; i < x1; i++ {
			if !free(i, j, k) {
				return false
			}
		}
		return true
	}

	var boxes []solidBox
	for j := int32(0); j < CHUNK_SIZE; j++ {
		for k := int32(0); k < CHUNK_SIZE; k++ {
			for i := int32(0); i < CHUNK_SIZE; i++ {
				if !free(i, j, k) {
					continue
				}
				b := solidBox{x0: i, y0: j, z0: k, x1: i + 1, y1: j + 1, z1: k + 1}
				for b.x1 < CHUNK_SIZE && free(b.x1, j, k) {
					b.x1++
				}
				for b.z1 < CHUNK_SIZE && rowFree(b.x0, b.x1, j, b.z1) {
					b.z1++
				}
			grow:
				for b.y1 < CHUNK_SIZE {
					for z := b.z0; z < b.z1; z++ {
						if !rowFree(b.x0, b.x1, b.y1, z) {
							break grow
						}
					}
					b.y1++
				}
				for y := b.y0; y < b.y1; y++ {
					for z := b.z0; z < b.z1; z++ {
						for x := b.x0; x < b.x1; x++ {
							h.boxed.set(blockIndex(x, y, z))
						}
					}
				}
				boxes = append(boxes, b)
			}
		}
	}

	slices.SortStableFunc(boxes, func(a, b solidBox) int {
		return int(b.volume() - a.volume())
	})
	if len(boxes) > maxOcclusionBoxes {
		boxes = boxes[:maxOcclusionBoxes]
	}
	slices.SortStableFunc(boxes, func(a, b solidBox) int {
		return int(b.tier()) - int(a.tier())
	})

	packed := make([]cull.PackedBox, len(boxes))
	for n, b := range boxes {
		packed[n] = cull.PackBox(b.x0, b.y0, b.z0, b.x1, b.y1, b.z1, b.tier())
	}
	return packed
}
