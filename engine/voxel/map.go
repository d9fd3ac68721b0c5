package voxel

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/pkg/errors"
)

// Map is a fixed grid of chunks. A nil slot is a region that is not loaded.
// Region indices used by the traversal are the slot indices
// x + y*width + z*width*height.
type Map struct {
	chunks []*Chunk
	width  int32
	height int32
	depth  int32
	helper *ChunkHelper
}

func NewMap(width, height, depth int32) *Map {
	return &Map{
		chunks: make([]*Chunk, width*height*depth),
		width:  width,
		height: height,
		depth:  depth,
	}
}

// NewMapFromReader loads a map written by SaveTo.
func NewMapFromReader(r io.Reader) (*Map, error) {
	m := &Map{}
	if err := m.LoadFrom(r); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) Size() (width, height, depth int32) {
	return m.width, m.height, m.depth
}

// SaveTo writes the map as a gzip compressed little endian stream: the map
// dimensions, the number of loaded chunks, then per chunk its position and
// one byte per block.
func (m *Map) SaveTo(w io.Writer) error {
	gzipWriter := gzip.NewWriter(w)

	var loaded []*Chunk
	for _, chunk := range m.chunks {
		if chunk != nil {
			loaded = append(loaded, chunk)
		}
	}
	header := []int32{m.width, m.height, m.depth, int32(len(loaded))}
	if err := binary.Write(gzipWriter, binary.LittleEndian, header); err != nil {
		return errors.Wrap(err, "writing map header")
	}
	util.LogIOInfo("saving map", "width", m.width, "height", m.height, "depth", m.depth, "chunks", len(loaded))

	ids := make([]byte, CHUNK_SIZE_CUBED)
	for _, chunk := range loaded {
		pos := []int32{chunk.chunkPosX, chunk.chunkPosY, chunk.chunkPosZ}
		if err := binary.Write(gzipWriter, binary.LittleEndian, pos); err != nil {
			return errors.Wrapf(err, "writing chunk %v", pos)
		}
		for i, block := range chunk.data {
			ids[i] = block.ID
		}
		if _, err := gzipWriter.Write(ids); err != nil {
			return errors.Wrapf(err, "writing blocks of chunk %v", pos)
		}
	}
	return errors.Wrap(gzipWriter.Close(), "closing map stream")
}

// LoadFrom replaces the map's contents with a stream written by SaveTo.
// Every loaded chunk starts dirty and without an occlusion payload.
func (m *Map) LoadFrom(r io.Reader) error {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "opening map stream")
	}
	defer gzipReader.Close()

	var header [4]int32
	if err := binary.Read(gzipReader, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "reading map header")
	}
	width, height, depth, chunkCount := header[0], header[1], header[2], header[3]
	if width <= 0 || height <= 0 || depth <= 0 || int64(width)*int64(height)*int64(depth) > math.MaxInt32 {
		return errors.Errorf("invalid map dimensions %dx%dx%d", width, height, depth)
	}
	if chunkCount < 0 || chunkCount > width*height*depth {
		return errors.Errorf("invalid chunk count %d", chunkCount)
	}
	util.LogIOInfo("loading map", "width", width, "height", height, "depth", depth, "chunks", chunkCount)

	m.width, m.height, m.depth = width, height, depth
	m.chunks = make([]*Chunk, width*height*depth)
	ids := make([]byte, CHUNK_SIZE_CUBED)
	for i := int32(0); i < chunkCount; i++ {
		var pos [3]int32
		if err := binary.Read(gzipReader, binary.LittleEndian, &pos); err != nil {
			return errors.Wrapf(err, "reading position of chunk %d", i)
		}
		if !m.inBounds(pos[0], pos[1], pos[2]) {
			return errors.Errorf("chunk %d at %v is outside the map", i, pos)
		}
		if _, err := io.ReadFull(gzipReader, ids); err != nil {
			return errors.Wrapf(err, "reading blocks of chunk %v", pos)
		}
		chunk := NewChunk(m, pos[0], pos[1], pos[2])
		for j, id := range ids {
			chunk.data[j] = NewBlock(id)
		}
		m.chunks[m.index(pos[0], pos[1], pos[2])] = chunk
	}
	m.InitNeighbors()
	return nil
}

func (m *Map) index(x, y, z int32) int32 {
	return x + y*m.width + z*m.width*m.height
}

func (m *Map) inBounds(x, y, z int32) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height && z >= 0 && z < m.depth
}

// SetChunk places c at the given chunk coordinates (nil unloads the slot)
// and relinks the neighbourhood.
func (m *Map) SetChunk(x, y, z int32, c *Chunk) {
	if !m.inBounds(x, y, z) {
		return
	}
	m.chunks[m.index(x, y, z)] = c
	if c != nil {
		c.InitNeighbors()
	}
	for f := cull.Face(0); f < cull.FaceCount; f++ {
		dx, dy, dz := f.Offset()
		if n := m.GetChunk(x+dx, y+dy, z+dz); n != nil {
			n.InitNeighbors()
		}
	}
}

func (m *Map) NewChunk(cX int32, cY int32, cZ int32) *Chunk {
	chunk := NewChunk(m, cX, cY, cZ)
	m.SetChunk(cX, cY, cZ, chunk)
	return chunk
}

// InitNeighbors relinks every loaded chunk.
func (m *Map) InitNeighbors() {
	for _, chunk := range m.chunks {
		if chunk != nil {
			chunk.InitNeighbors()
		}
	}
}

func (m *Map) GetChunk(x, y, z int32) *Chunk {
	if !m.inBounds(x, y, z) {
		return nil
	}
	return m.chunks[m.index(x, y, z)]
}

// ChunkAt returns the chunk of a region index, nil if it is not loaded.
func (m *Map) ChunkAt(i int32) *Chunk {
	if i < 0 || i >= int32(len(m.chunks)) {
		return nil
	}
	return m.chunks[i]
}

func (m *Map) ChunkExists(x, y, z int32) bool {
	return m.GetChunk(x, y, z) != nil
}

func (m *Map) GetChunkFromBlock(x, y, z int32) *Chunk {
	return m.GetChunk(floorDiv(x, CHUNK_SIZE), floorDiv(y, CHUNK_SIZE), floorDiv(z, CHUNK_SIZE))
}

func (m *Map) GetChunkFromPosition(pos mgl32.Vec3) *Chunk {
	p := ToGridInt3(pos)
	return m.GetChunkFromBlock(p.X, p.Y, p.Z)
}

func (m *Map) SetBlock(x int32, y int32, z int32, block Block) {
	chunk := m.GetChunkFromBlock(x, y, z)
	if chunk != nil {
		chunk.SetBlock(x-chunk.chunkPosX*CHUNK_SIZE, y-chunk.chunkPosY*CHUNK_SIZE, z-chunk.chunkPosZ*CHUNK_SIZE, block)
	}
}

func (m *Map) GetGlobalBlock(x int32, y int32, z int32) *Block {
	chunk := m.GetChunkFromBlock(x, y, z)
	if chunk == nil {
		return nil
	}
	return chunk.GetLocalBlock(x-chunk.chunkPosX*CHUNK_SIZE, y-chunk.chunkPosY*CHUNK_SIZE, z-chunk.chunkPosZ*CHUNK_SIZE)
}

func (m *Map) IsSolidBlockAt(x int32, y int32, z int32) bool {
	block := m.GetGlobalBlock(x, y, z)
	return block != nil && !block.IsAir()
}

func (m *Map) Contains(x int32, y int32, z int32) bool {
	return x >= 0 && x < m.width*CHUNK_SIZE && y >= 0 && y < m.height*CHUNK_SIZE && z >= 0 && z < m.depth*CHUNK_SIZE
}

func ToGridInt3(pos mgl32.Vec3) Int3 {
	return Int3{int32(math.Floor(float64(pos.X()))), int32(math.Floor(float64(pos.Y()))), int32(math.Floor(float64(pos.Z())))}
}

// RebuildOcclusion rebuilds the payload of region i.
func (m *Map) RebuildOcclusion(i int32) *cull.OcclusionPayload {
	chunk := m.ChunkAt(i)
	if chunk == nil {
		return nil
	}
	return chunk.RebuildOcclusion()
}

// RebuildAll builds the payload of every loaded chunk and returns how many
// were built.
func (m *Map) RebuildAll() int {
	built := 0
	for _, chunk := range m.chunks {
		if chunk != nil {
			chunk.RebuildOcclusion()
			built++
		}
	}
	util.LogVoxelDebug("rebuilt occlusion", "chunks", built)
	return built
}

func (m *Map) RegionCount() int {
	return len(m.chunks)
}

func (m *Map) RegionAt(x, y, z int32) int32 {
	if !m.inBounds(x, y, z) {
		return cull.NoRegion
	}
	i := m.index(x, y, z)
	if m.chunks[i] == nil {
		return cull.NoRegion
	}
	return i
}

func (m *Map) RegionCoords(i int32) (x, y, z int32) {
	return i % m.width, i / m.width % m.height, i / (m.width * m.height)
}

func (m *Map) Bounds() (minX, minY, minZ, maxX, maxY, maxZ int32) {
	return 0, 0, 0, m.width - 1, m.height - 1, m.depth - 1
}

func (m *Map) Neighbor(i int32, f cull.Face) int32 {
	chunk := m.ChunkAt(i)
	if chunk == nil {
		return cull.NoRegion
	}
	return chunk.Neighbor(f)
}

// ShouldBuild reports whether the region and every neighbour inside the map
// are loaded. Meshes at the edge of the loaded area would show holes.
func (m *Map) ShouldBuild(i int32) bool {
	chunk := m.ChunkAt(i)
	if chunk == nil {
		return false
	}
	x, y, z := chunk.chunkPosX, chunk.chunkPosY, chunk.chunkPosZ
	for f := cull.Face(0); f < cull.FaceCount; f++ {
		dx, dy, dz := f.Offset()
		if m.inBounds(x+dx, y+dy, z+dz) && chunk.Neighbor(f) == cull.NoRegion {
			return false
		}
	}
	return true
}

func (m *Map) BuildData(i int32) (*cull.OcclusionPayload, bool) {
	chunk := m.ChunkAt(i)
	if chunk == nil {
		return nil, false
	}
	return chunk.occlusion, chunk.isDirty
}

func (m *Map) State(i int32) *cull.RegionState {
	return &m.chunks[i].state
}
