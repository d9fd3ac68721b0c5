package voxel

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/Tnze/go-mc/nbt"
	"github.com/memmaker/chunkcull/engine/util"
	"github.com/pkg/errors"
)

/*
	TAG_Compound({
	    "block_entities": TAG_List([
	        TAG_Compound({
	            "namespace": TAG_String(),
	            "base_name": TAG_String(),
	            "x": TAG_Int(),
	            "y": TAG_Int(),
	            "z": TAG_Int(),
	            "nbt": TAG_Compound()
	        })
	        ...
	    ]),
	    "blocks_array_type": TAG_Byte(),
	    "blocks": <byte or int array of palette indices>
	})
*/
type SectionBlockInfo struct {
	BlocksArrayType byte `nbt:"blocks_array_type"`
}
type ByteSection struct {
	BlockEntities []BlockEntity `nbt:"block_entities"`
	Blocks        []byte        `nbt:"blocks"`
}
type IntSection struct {
	BlockEntities []BlockEntity `nbt:"block_entities"`
	Blocks        []int32       `nbt:"blocks"`
}

type BlockEntity struct {
	Namespace string `nbt:"namespace"`
	Name      string `nbt:"base_name"`
	X         int32  `nbt:"x"`
	Y         int32  `nbt:"y"`
	Z         int32  `nbt:"z"`
}

type AmuletMetadata struct {
	SelectionBoxes    []int32 `nbt:"selection_boxes"`
	SectionIndexTable []byte  `nbt:"section_index_table"`
	SectionVersion    byte    `nbt:"section_version"`
	ExportVersion     struct {
		Edition string  `nbt:"edition"`
		Version []int32 `nbt:"version"`
	} `nbt:"export_version"`
	BlockPalette []*BlockDefinition `nbt:"block_palette"`
	CreatedWith  string             `nbt:"created_with"`
}
type BlockDefinition struct {
	Name       string         `nbt:"blockname"`
	NameSpace  string         `nbt:"namespace"`
	Properties map[string]any `nbt:"properties"`
}
type Construction struct {
	Sections []*ConstructionSection
}

type ConstructionSection struct {
	Blocks        []*BlockDefinition
	ShapeX        uint8
	ShapeY        uint8
	ShapeZ        uint8
	MinBlockX     int32
	MinBlockY     int32
	MinBlockZ     int32
	BlockEntities []BlockEntity
}

const (
	constructionMagic  = "constrct"
	blockArrayTypeByte = 7
	blockArrayTypeInt  = 11
)

var ErrNotConstruction = errors.New("not an amulet construction file")

func LoadConstructionFile(filename string) (*Construction, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening construction")
	}
	defer file.Close()
	c, err := LoadConstruction(file)
	return c, errors.Wrapf(err, "loading %s", filename)
}

// LoadConstruction decodes an Amulet .construction stream. The file starts
// and ends with a magic number; the int32 in front of the trailing magic is
// the offset of the gzip compressed NBT metadata, whose section table points
// at the gzip compressed NBT sections.
func LoadConstruction(r io.ReadSeeker) (*Construction, error) {
	var magic [len(constructionMagic)]byte
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "reading magic number")
	}
	if string(magic[:]) != constructionMagic {
		return nil, ErrNotConstruction
	}

	offset := int64(len(constructionMagic))
	if _, err := r.Seek(-offset, io.SeekEnd); err != nil {
		return nil, errors.Wrap(err, "seeking trailing magic number")
	}
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "reading trailing magic number")
	}
	if string(magic[:]) != constructionMagic {
		return nil, ErrNotConstruction
	}

	if _, err := r.Seek(-offset-4, io.SeekEnd); err != nil {
		return nil, errors.Wrap(err, "seeking metadata offset")
	}
	var metaDataOffset int32
	if err := binary.Read(r, binary.BigEndian, &metaDataOffset); err != nil {
		return nil, errors.Wrap(err, "reading metadata offset")
	}

	var meta AmuletMetadata
	if err := decodeNBTAt(r, int64(metaDataOffset), &meta); err != nil {
		return nil, errors.Wrap(err, "decoding metadata")
	}

	sectionTable := decodeSectionTable(meta.SectionIndexTable)
	sections := make([]*ConstructionSection, len(sectionTable))
	for sIndex, section := range sectionTable {
		var info SectionBlockInfo
		if err := decodeNBTAt(r, int64(section.Offset), &info); err != nil {
			return nil, errors.Wrapf(err, "decoding section %d", sIndex)
		}

		var blocks []*BlockDefinition
		var blockEntities []BlockEntity
		var err error
		switch info.BlocksArrayType {
		case blockArrayTypeByte:
			var decoded ByteSection
			if err = decodeNBTAt(r, int64(section.Offset), &decoded); err == nil {
				blockEntities = decoded.BlockEntities
				blocks, err = decodeBlocks(decoded.Blocks, meta.BlockPalette)
			}
		case blockArrayTypeInt:
			var decoded IntSection
			if err = decodeNBTAt(r, int64(section.Offset), &decoded); err == nil {
				blockEntities = decoded.BlockEntities
				blocks, err = decodeBlocks(decoded.Blocks, meta.BlockPalette)
			}
		default:
			err = errors.Errorf("unsupported block array type %d", info.BlocksArrayType)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decoding section %d", sIndex)
		}

		sections[sIndex] = &ConstructionSection{
			Blocks:        blocks,
			BlockEntities: blockEntities,
			ShapeX:        section.ShapeX,
			ShapeY:        section.ShapeY,
			ShapeZ:        section.ShapeZ,
			MinBlockX:     section.MinBlockX,
			MinBlockY:     section.MinBlockY,
			MinBlockZ:     section.MinBlockZ,
		}
	}
	util.LogIOInfo("loaded construction", "sections", len(sections), "palette", len(meta.BlockPalette), "created_with", meta.CreatedWith)
	return &Construction{Sections: sections}, nil
}

func decodeNBTAt(r io.ReadSeeker, offset int64, v any) error {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking")
	}
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "opening gzip stream")
	}
	defer gzipReader.Close()
	if _, err := nbt.NewDecoder(gzipReader).Decode(v); err != nil {
		return errors.Wrap(err, "decoding nbt")
	}
	return nil
}

func decodeBlocks[T int32 | byte](blocks []T, palette []*BlockDefinition) ([]*BlockDefinition, error) {
	result := make([]*BlockDefinition, len(blocks))
	for i, block := range blocks {
		if int(block) < 0 || int(block) >= len(palette) {
			return nil, errors.Errorf("block %d: palette index %d out of range", i, block)
		}
		result[i] = palette[block]
	}
	return result, nil
}

/*
The section_index_table is an Mx23 TAG_Byte_Array where M is the number of section data entries present in the construction file.

The real format of the section_index_table is IIIBBBII where I is a uint32 and B is a uint8.

III: The X, Y, and Z block coordinates of the minimum point of the section
BBB: The shape of the section in blocks in X, Y, Z order
I: The starting byte of the section data entry in the file
I: The byte length of the section data entry
*/

type SectionIndex struct {
	MinBlockX int32
	MinBlockY int32
	MinBlockZ int32
	ShapeX    uint8
	ShapeY    uint8
	ShapeZ    uint8
	Offset    uint32
	Size      uint32
}

const sectionIndexSize = 23

func decodeSectionTable(table []byte) []SectionIndex {
	sectionCount := len(table) / sectionIndexSize
	sections := make([]SectionIndex, sectionCount)
	for i := range sections {
		e := table[i*sectionIndexSize : (i+1)*sectionIndexSize]
		sections[i] = SectionIndex{
			MinBlockX: int32(binary.LittleEndian.Uint32(e[0:4])),
			MinBlockY: int32(binary.LittleEndian.Uint32(e[4:8])),
			MinBlockZ: int32(binary.LittleEndian.Uint32(e[8:12])),
			ShapeX:    e[12],
			ShapeY:    e[13],
			ShapeZ:    e[14],
			Offset:    binary.LittleEndian.Uint32(e[15:19]),
			Size:      binary.LittleEndian.Uint32(e[19:23]),
		}
	}
	return sections
}

// BlockIDForName maps a Minecraft block name onto the block IDs the
// occlusion builder knows about.
func BlockIDForName(name string) byte {
	switch {
	case name == "" || strings.HasSuffix(name, "air"):
		return BlockAir
	case strings.Contains(name, "glass") || strings.Contains(name, "leaves"):
		return BlockGlass
	case name == "water" || name == "lava":
		return BlockWater
	case name == "dirt" || name == "coarse_dirt":
		return BlockDirt
	case name == "grass_block":
		return BlockGrass
	}
	return BlockStone
}

// NewMapFromConstruction creates a map just large enough for the
// construction, aligned so its minimum corner lands on block 0,0,0.
func NewMapFromConstruction(construction *Construction) (*Map, error) {
	if len(construction.Sections) == 0 {
		return nil, errors.New("construction has no sections")
	}
	minX, minY, minZ := int32(math.MaxInt32), int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY, maxZ := int32(math.MinInt32), int32(math.MinInt32), int32(math.MinInt32)
	for _, section := range construction.Sections {
		minX = min(minX, section.MinBlockX)
		minY = min(minY, section.MinBlockY)
		minZ = min(minZ, section.MinBlockZ)
		maxX = max(maxX, section.MinBlockX+int32(section.ShapeX))
		maxY = max(maxY, section.MinBlockY+int32(section.ShapeY))
		maxZ = max(maxZ, section.MinBlockZ+int32(section.ShapeZ))
	}
	chunkCountX := max(1, (maxX-minX+CHUNK_SIZE-1)/CHUNK_SIZE)
	chunkCountY := max(1, (maxY-minY+CHUNK_SIZE-1)/CHUNK_SIZE)
	chunkCountZ := max(1, (maxZ-minZ+CHUNK_SIZE-1)/CHUNK_SIZE)
	util.LogVoxelInfo("construction bounds",
		"min", Int3{minX, minY, minZ}, "max", Int3{maxX, maxY, maxZ},
		"chunks", Int3{chunkCountX, chunkCountY, chunkCountZ})

	voxelMap := NewMap(chunkCountX, chunkCountY, chunkCountZ)
	for cX := int32(0); cX < chunkCountX; cX++ {
		for cY := int32(0); cY < chunkCountY; cY++ {
			for cZ := int32(0); cZ < chunkCountZ; cZ++ {
				voxelMap.NewChunk(cX, cY, cZ)
			}
		}
	}
	ImportConstruction(voxelMap, construction, Int3{-minX, -minY, -minZ})
	return voxelMap, nil
}

// ImportConstruction stamps the construction's blocks into the map, shifted
// by offset. Blocks landing outside loaded chunks are dropped.
func ImportConstruction(m *Map, construction *Construction, offset Int3) int {
	blockCounter := 0
	for _, section := range construction.Sections {
		blockIndex := 0
		for x := section.MinBlockX; x < section.MinBlockX+int32(section.ShapeX); x++ {
			for y := section.MinBlockY; y < section.MinBlockY+int32(section.ShapeY); y++ {
				for z := section.MinBlockZ; z < section.MinBlockZ+int32(section.ShapeZ); z++ {
					if blockIndex >= len(section.Blocks) {
						break
					}
					def := section.Blocks[blockIndex]
					blockIndex++
					if def == nil {
						continue
					}
					id := BlockIDForName(def.Name)
					if id == BlockAir {
						continue
					}
					m.SetBlock(x+offset.X, y+offset.Y, z+offset.Z, NewBlock(id))
					blockCounter++
				}
			}
		}
		for _, entity := range section.BlockEntities {
			m.SetBlock(entity.X+offset.X, entity.Y+offset.Y, entity.Z+offset.Z, NewBlock(BlockIDForName(entity.Name)))
		}
	}
	util.LogVoxelInfo("imported construction", "blocks", blockCounter)
	return blockCounter
}
