package voxel

import (
	"testing"

	"github.com/memmaker/chunkcull/engine/cull"
	"github.com/stretchr/testify/require"
)

func fillBox(c *Chunk, x0, y0, z0, x1, y1, z1 int32, id byte) {
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			for z := z0; z < z1; z++ {
				c.SetBlock(x, y, z, NewBlock(id))
			}
		}
	}
}

func TestBuildOcclusionEmptyChunk(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	require.Same(t, cull.EmptyPayload, BuildOcclusion(c))
}

func TestBuildOcclusionVisibility(t *testing.T) {
	tests := []struct {
		name         string
		fill         func(c *Chunk)
		connected    [][2]cull.Face
		disconnected [][2]cull.Face
	}{
		{
			name: "floor",
			fill: func(c *Chunk) { fillBox(c, 0, 0, 0, 16, 1, 16, BlockStone) },
			connected: [][2]cull.Face{
				{cull.FaceUp, cull.FaceNorth},
				{cull.FaceWest, cull.FaceEast},
				{cull.FaceUp, cull.FaceUp},
			},
			disconnected: [][2]cull.Face{
				{cull.FaceDown, cull.FaceUp},
				{cull.FaceDown, cull.FaceWest},
				{cull.FaceDown, cull.FaceDown},
			},
		},
		{
			name: "wall across x",
			fill: func(c *Chunk) { fillBox(c, 8, 0, 0, 9, 16, 16, BlockStone) },
			connected: [][2]cull.Face{
				{cull.FaceWest, cull.FaceUp},
				{cull.FaceEast, cull.FaceNorth},
			},
			disconnected: [][2]cull.Face{
				{cull.FaceWest, cull.FaceEast},
			},
		},
		{
			name: "glass wall",
			fill: func(c *Chunk) { fillBox(c, 8, 0, 0, 9, 16, 16, BlockGlass) },
			connected: [][2]cull.Face{
				{cull.FaceWest, cull.FaceEast},
			},
		},
		{
			name: "wall with a hole",
			fill: func(c *Chunk) {
				fillBox(c, 8, 0, 0, 9, 16, 16, BlockStone)
				c.SetBlock(8, 5, 5, NewAirBlock())
			},
			connected: [][2]cull.Face{
				{cull.FaceWest, cull.FaceEast},
			},
		},
		{
			name: "sealed cave",
			fill: func(c *Chunk) {
				fillBox(c, 0, 0, 0, 16, 16, 16, BlockStone)
				fillBox(c, 4, 4, 4, 12, 12, 12, BlockAir)
			},
			disconnected: [][2]cull.Face{
				{cull.FaceWest, cull.FaceEast},
				{cull.FaceUp, cull.FaceUp},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewChunk(nil, 0, 0, 0)
			test.fill(c)
			p := BuildOcclusion(c)
			require.False(t, p.IsEmpty())
			for _, pair := range test.connected {
				require.True(t, p.Visibility.Connected(pair[0], pair[1]), "%s-%s", pair[0], pair[1])
				require.True(t, p.Visibility.Connected(pair[1], pair[0]), "%s-%s", pair[1], pair[0])
			}
			for _, pair := range test.disconnected {
				require.False(t, p.Visibility.Connected(pair[0], pair[1]), "%s-%s", pair[0], pair[1])
			}
		})
	}
}

func TestBuildOcclusionSolidChunk(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	c.Fill(NewBlock(BlockStone))

	p := BuildOcclusion(c)
	full := cull.PackBox(0, 0, 0, 16, 16, 16, cull.TierExtreme)
	require.Equal(t, full, p.Bounds)
	require.Zero(t, p.Visibility)
	require.Equal(t, []cull.PackedBox{full}, p.Boxes)
}

func TestBuildOcclusionBounds(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	c.SetBlock(2, 3, 4, NewBlock(BlockGlass))
	c.SetBlock(10, 5, 6, NewBlock(BlockStone))

	p := BuildOcclusion(c)
	x0, y0, z0 := p.Bounds.Min()
	x1, y1, z1 := p.Bounds.Max()
	require.Equal(t, [6]int32{2, 3, 4, 11, 6, 7}, [6]int32{x0, y0, z0, x1, y1, z1})
	require.Len(t, p.Boxes, 1)
	require.Equal(t, cull.TierNear, p.Boxes[0].Tier())
}

func TestGreedyBoxesMergeSlab(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	fillBox(c, 0, 0, 0, 16, 4, 16, BlockStone)

	p := BuildOcclusion(c)
	require.Equal(t, []cull.PackedBox{cull.PackBox(0, 0, 0, 16, 4, 16, cull.TierExtreme)}, p.Boxes)
}

func TestGreedyBoxesCoverOpaqueCellsOnce(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	fillBox(c, 0, 0, 0, 16, 2, 16, BlockStone)
	fillBox(c, 3, 2, 3, 9, 7, 5, BlockDirt)
	fillBox(c, 12, 2, 12, 13, 3, 13, BlockStone)

	p := BuildOcclusion(c)
	var volume int32
	for _, b := range p.Boxes {
		x0, y0, z0 := b.Min()
		x1, y1, z1 := b.Max()
		volume += (x1 - x0) * (y1 - y0) * (z1 - z0)
	}
	require.Equal(t, int32(16*2*16+6*5*2+1), volume)

	for n := 1; n < len(p.Boxes); n++ {
		require.GreaterOrEqual(t, p.Boxes[n-1].Tier(), p.Boxes[n].Tier())
	}
}

func TestGreedyBoxesAreCapped(t *testing.T) {
	c := NewChunk(nil, 0, 0, 0)
	for x := int32(0); x < CHUNK_SIZE; x += 2 {
		for y := int32(0); y < CHUNK_SIZE; y += 2 {
			for z := int32(0); z < CHUNK_SIZE; z += 2 {
				c.SetBlock(x, y, z, NewBlock(BlockStone))
			}
		}
	}

	p := BuildOcclusion(c)
	require.Len(t, p.Boxes, maxOcclusionBoxes)
	for _, b := range p.Boxes {
		require.Equal(t, cull.TierNear, b.Tier())
	}
	require.True(t, p.Visibility.Connected(cull.FaceWest, cull.FaceEast))
}

func TestSolidBoxTier(t *testing.T) {
	tests := []struct {
		box  solidBox
		tier cull.RangeTier
	}{
		{solidBox{0, 0, 0, 1, 1, 1}, cull.TierNear},
		{solidBox{0, 0, 0, 4, 1, 1}, cull.TierMid},
		{solidBox{0, 0, 0, 1, 9, 1}, cull.TierFar},
		{solidBox{0, 0, 0, 2, 2, 12}, cull.TierExtreme},
	}
	for _, test := range tests {
		t.Run(test.tier.String(), func(t *testing.T) {
			require.Equal(t, test.tier, test.box.tier())
		})
	}
}

func TestTouchedFaces(t *testing.T) {
	require.Zero(t, touchedFaces(5, 5, 5))
	require.Equal(t, uint8(1<<cull.FaceWest|1<<cull.FaceDown|1<<cull.FaceNorth), touchedFaces(0, 0, 0))
	require.Equal(t, uint8(1<<cull.FaceEast|1<<cull.FaceUp|1<<cull.FaceSouth), touchedFaces(15, 15, 15))
}

func BenchmarkBuildOcclusion(b *testing.B) {
	m := GenerateTerrain(1, 4, 1, DefaultTerrainOptions())
	c := m.GetChunk(0, 1, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildOcclusion(c)
	}
}
