package voxel

import "github.com/memmaker/chunkcull/engine/cull"

const (
	EMPTY              byte  = 0
	CHUNK_SIZE         int32 = cull.RegionSize
	CHUNK_SIZE_SQUARED int32 = CHUNK_SIZE * CHUNK_SIZE
	CHUNK_SIZE_CUBED   int32 = CHUNK_SIZE * CHUNK_SIZE * CHUNK_SIZE
)

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
