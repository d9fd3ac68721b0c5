package voxel

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/chunkcull/engine/cull"
)

// Chunk is one region of the map: CHUNK_SIZE³ blocks plus the bookkeeping
// the visibility traversal reads and writes.
type Chunk struct {
	data      []Block
	m         *Map
	chunkPosX int32
	chunkPosY int32
	chunkPosZ int32
	neighbors [cull.FaceCount]int32
	state     cull.RegionState
	occlusion *cull.OcclusionPayload
	isDirty   bool
}

func NewChunk(voxelMap *Map, x, y, z int32) *Chunk {
	c := &Chunk{
		data:      make([]Block, CHUNK_SIZE_CUBED),
		m:         voxelMap,
		chunkPosX: x,
		chunkPosY: y,
		chunkPosZ: z,
		isDirty:   true,
	}
	for i := range c.neighbors {
		c.neighbors[i] = cull.NoRegion
	}
	return c
}

func blockIndex(i, j, k int32) int32 {
	return i + j*CHUNK_SIZE + k*CHUNK_SIZE_SQUARED
}
func (c *Chunk) Contains(x, y, z int32) bool {
	return x >= 0 && x < CHUNK_SIZE && y >= 0 && y < CHUNK_SIZE && z >= 0 && z < CHUNK_SIZE
}
func (c *Chunk) GetLocalBlock(i, j, k int32) *Block {
	if !c.Contains(i, j, k) {
		return nil
	}
	return &c.data[blockIndex(i, j, k)]
}

func (c *Chunk) SetBlock(x, y, z int32, block Block) {
	c.data[blockIndex(x, y, z)] = block
	c.isDirty = true
}

// Fill sets every block of the chunk.
func (c *Chunk) Fill(block Block) {
	for i := range c.data {
		c.data[i] = block
	}
	c.isDirty = true
}

func (c *Chunk) IsBlockAt(i int32, j int32, k int32) bool {
	b := c.GetLocalBlock(i, j, k)
	return b != nil && !b.IsAir()
}

func (c *Chunk) isOpaqueAt(i, j, k int32) bool {
	return c.data[blockIndex(i, j, k)].IsOpaque()
}

// InitNeighbors resolves the region indices of the six face neighbours.
func (c *Chunk) InitNeighbors() {
	for f := cull.Face(0); f < cull.FaceCount; f++ {
		dx, dy, dz := f.Offset()
		c.neighbors[f] = c.m.RegionAt(c.chunkPosX+dx, c.chunkPosY+dy, c.chunkPosZ+dz)
	}
}

func (c *Chunk) Neighbor(f cull.Face) int32 {
	return c.neighbors[f]
}

func (c *Chunk) Position() Int3 {
	return Int3{c.chunkPosX, c.chunkPosY, c.chunkPosZ}
}

func (c *Chunk) SetDirty() {
	c.isDirty = true
}

func (c *Chunk) IsDirty() bool {
	return c.isDirty
}

func (c *Chunk) AABBMin() mgl32.Vec3 {
	return c.Position().Mul(CHUNK_SIZE).ToVec3()
}

func (c *Chunk) AABBMax() mgl32.Vec3 {
	return c.Position().Add(Int3{1, 1, 1}).Mul(CHUNK_SIZE).ToVec3()
}

// Occlusion returns the last built payload, nil if none was built yet.
func (c *Chunk) Occlusion() *cull.OcclusionPayload {
	return c.occlusion
}

// RebuildOcclusion recomputes the payload from the current blocks and
// forgets the cached visibility result that belonged to the old one.
func (c *Chunk) RebuildOcclusion() *cull.OcclusionPayload {
	c.occlusion = BuildOcclusion(c)
	c.state.Invalidate()
	c.isDirty = false
	return c.occlusion
}

type Int3 struct {
	X, Y, Z int32
}

func (i Int3) Add(other Int3) Int3 {
	return Int3{i.X + other.X, i.Y + other.Y, i.Z + other.Z}
}

func (i Int3) Mul(factor int32) Int3 {
	i.X *= factor
	i.Y *= factor
	i.Z *= factor
	return i
}

func (i Int3) ToVec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(i.X), float32(i.Y), float32(i.Z)}
}

