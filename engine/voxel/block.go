package voxel

// Block IDs understood by the occlusion builder. Anything else counts as a
// solid, opaque block.
const (
	BlockAir   byte = EMPTY
	BlockStone byte = 1
	BlockDirt  byte = 2
	BlockGrass byte = 3
	BlockGlass byte = 4
	BlockWater byte = 5
)

type Block struct {
	ID byte
}

func NewBlock(id byte) Block {
	return Block{ID: id}
}

func NewAirBlock() Block {
	return Block{ID: EMPTY}
}

func (b Block) IsAir() bool {
	return b.ID == EMPTY
}

// IsOpaque reports whether the block stops every ray passing through its
// cell.
func (b Block) IsOpaque() bool {
	switch b.ID {
	case BlockAir, BlockGlass, BlockWater:
		return false
	}
	return true
}
