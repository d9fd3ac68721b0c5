package voxel

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/stretchr/testify/require"
)

type testPaletteEntry struct {
	Name      string `nbt:"blockname"`
	NameSpace string `nbt:"namespace"`
}

type testMetadata struct {
	SectionIndexTable []byte             `nbt:"section_index_table"`
	BlockPalette      []testPaletteEntry `nbt:"block_palette"`
	CreatedWith       string             `nbt:"created_with"`
}

type testByteSection struct {
	BlocksArrayType byte   `nbt:"blocks_array_type"`
	Blocks          []byte `nbt:"blocks"`
}

func gzipNBT(t *testing.T, v any) []byte {
	t.Helper()
	data, err := nbt.Marshal(v)
	require.NoError(t, err)
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func sectionIndexEntry(minX, minY, minZ int32, shapeX, shapeY, shapeZ uint8, offset, size uint32) []byte {
	e := make([]byte, sectionIndexSize)
	binary.LittleEndian.PutUint32(e[0:4], uint32(minX))
	binary.LittleEndian.PutUint32(e[4:8], uint32(minY))
	binary.LittleEndian.PutUint32(e[8:12], uint32(minZ))
	e[12], e[13], e[14] = shapeX, shapeY, shapeZ
	binary.LittleEndian.PutUint32(e[15:19], offset)
	binary.LittleEndian.PutUint32(e[19:23], size)
	return e
}

// buildConstruction writes a construction file with one 2x1x2 section at
// 10,20,30 whose blocks index the palette air, stone, glass.
func buildConstruction(t *testing.T, blocks []byte) []byte {
	t.Helper()
	var file bytes.Buffer
	file.WriteString(constructionMagic)

	section := gzipNBT(t, testByteSection{BlocksArrayType: blockArrayTypeByte, Blocks: blocks})
	sectionOffset := uint32(file.Len())
	file.Write(section)

	meta := gzipNBT(t, testMetadata{
		SectionIndexTable: sectionIndexEntry(10, 20, 30, 2, 1, 2, sectionOffset, uint32(len(section))),
		BlockPalette: []testPaletteEntry{
			{Name: "air", NameSpace: "minecraft"},
			{Name: "stone", NameSpace: "minecraft"},
			{Name: "glass", NameSpace: "minecraft"},
		},
		CreatedWith: "test",
	})
	metaOffset := int32(file.Len())
	file.Write(meta)
	require.NoError(t, binary.Write(&file, binary.BigEndian, metaOffset))
	file.WriteString(constructionMagic)
	return file.Bytes()
}

func TestLoadConstruction(t *testing.T) {
	data := buildConstruction(t, []byte{1, 0, 2, 1})

	construction, err := LoadConstruction(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, construction.Sections, 1)
	s := construction.Sections[0]
	require.Equal(t, [3]int32{10, 20, 30}, [3]int32{s.MinBlockX, s.MinBlockY, s.MinBlockZ})
	require.Equal(t, [3]uint8{2, 1, 2}, [3]uint8{s.ShapeX, s.ShapeY, s.ShapeZ})
	require.Len(t, s.Blocks, 4)
	require.Equal(t, "stone", s.Blocks[0].Name)
	require.Equal(t, "air", s.Blocks[1].Name)

	m, err := NewMapFromConstruction(construction)
	require.NoError(t, err)
	w, h, d := m.Size()
	require.Equal(t, [3]int32{1, 1, 1}, [3]int32{w, h, d})
	require.Equal(t, BlockStone, m.GetGlobalBlock(0, 0, 0).ID)
	require.True(t, m.GetGlobalBlock(0, 0, 1).IsAir())
	require.Equal(t, BlockGlass, m.GetGlobalBlock(1, 0, 0).ID)
	require.Equal(t, BlockStone, m.GetGlobalBlock(1, 0, 1).ID)
}

func TestLoadConstructionErrors(t *testing.T) {
	_, err := LoadConstruction(bytes.NewReader([]byte("definitely not a construction")))
	require.ErrorIs(t, err, ErrNotConstruction)

	_, err = LoadConstruction(bytes.NewReader([]byte("con")))
	require.Error(t, err)

	data := buildConstruction(t, []byte{1, 0, 7, 1})
	_, err = LoadConstruction(bytes.NewReader(data))
	require.ErrorContains(t, err, "palette index 7 out of range")

	_, err = LoadConstructionFile("testdata/missing.construction")
	require.Error(t, err)
}

func TestDecodeSectionTable(t *testing.T) {
	table := append(
		sectionIndexEntry(-16, 0, 32, 16, 16, 16, 8, 100),
		sectionIndexEntry(0, 64, -1, 1, 2, 3, 108, 40)...)
	// a trailing partial entry is ignored
	table = append(table, 1, 2, 3)

	sections := decodeSectionTable(table)
	require.Equal(t, []SectionIndex{
		{MinBlockX: -16, MinBlockY: 0, MinBlockZ: 32, ShapeX: 16, ShapeY: 16, ShapeZ: 16, Offset: 8, Size: 100},
		{MinBlockX: 0, MinBlockY: 64, MinBlockZ: -1, ShapeX: 1, ShapeY: 2, ShapeZ: 3, Offset: 108, Size: 40},
	}, sections)
}

func TestBlockIDForName(t *testing.T) {
	tests := []struct {
		name string
		id   byte
	}{
		{"", BlockAir},
		{"air", BlockAir},
		{"cave_air", BlockAir},
		{"glass", BlockGlass},
		{"white_stained_glass_pane", BlockGlass},
		{"oak_leaves", BlockGlass},
		{"water", BlockWater},
		{"dirt", BlockDirt},
		{"grass_block", BlockGrass},
		{"cobblestone", BlockStone},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.id, BlockIDForName(test.name))
		})
	}
}

func TestImportConstructionOffset(t *testing.T) {
	stone := &BlockDefinition{Name: "stone"}
	construction := &Construction{Sections: []*ConstructionSection{{
		Blocks:    []*BlockDefinition{stone, nil, stone},
		ShapeX:    1,
		ShapeY:    1,
		ShapeZ:    3,
		MinBlockX: 0,
		MinBlockY: 0,
		MinBlockZ: 0,
		BlockEntities: []BlockEntity{
			{Name: "chest", X: 0, Y: 1, Z: 0},
		},
	}}}

	m := newFullMap(1, 1, 1)
	require.Equal(t, 2, ImportConstruction(m, construction, Int3{X: 4, Y: 4, Z: 4}))
	require.True(t, m.IsSolidBlockAt(4, 4, 4))
	require.False(t, m.IsSolidBlockAt(4, 4, 5))
	require.True(t, m.IsSolidBlockAt(4, 4, 6))
	require.True(t, m.IsSolidBlockAt(4, 5, 4))

	_, err := NewMapFromConstruction(&Construction{})
	require.Error(t, err)
}
