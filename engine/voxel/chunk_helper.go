package voxel

// cellSet is a bitset over the cells of one chunk.
type cellSet [CHUNK_SIZE_CUBED / 64]uint64

func (s *cellSet) set(i int32) {
	s[i>>6] |= 1 << (i & 63)
}

func (s *cellSet) has(i int32) bool {
	return s[i>>6]&(1<<(i&63)) != 0
}

func (s *cellSet) reset() {
	*s = cellSet{}
}

// ChunkHelper holds the scratch space of the occlusion builder so building
// many chunks in a row does not allocate.
type ChunkHelper struct {
	opaque  cellSet
	visited cellSet
	boxed   cellSet
	stack   []int32
}

func NewChunkHelper() *ChunkHelper {
	return &ChunkHelper{stack: make([]int32, 0, CHUNK_SIZE_CUBED)}
}

func (h *ChunkHelper) Reset() {
	h.opaque.reset()
	h.visited.reset()
	h.boxed.reset()
	h.stack = h.stack[:0]
}
