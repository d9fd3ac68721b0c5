package voxel

import (
	"math"
	"math/rand"

	"github.com/memmaker/chunkcull/engine/util"
)

type TerrainOptions struct {
	Seed int64
	// BaseHeight is the mean surface height in blocks.
	BaseHeight int32
	// Amplitude is the largest deviation of the surface from BaseHeight.
	Amplitude float64
	// Caves is the number of tunnels carved below the surface.
	Caves int
	// GlassTowers is the number of see-through pillars placed on the surface.
	GlassTowers int
}

func DefaultTerrainOptions() TerrainOptions {
	return TerrainOptions{
		Seed:        1,
		BaseHeight:  CHUNK_SIZE * 2,
		Amplitude:   12,
		Caves:       24,
		GlassTowers: 8,
	}
}

type wave struct {
	fx, fz, phase, amp float64
}

// GenerateTerrain fills a fully loaded map with rolling hills, tunnels and a
// few glass pillars. The same options always produce the same blocks.
func GenerateTerrain(width, height, depth int32, opts TerrainOptions) *Map {
	rng := rand.New(rand.NewSource(opts.Seed))
	m := NewMap(width, height, depth)
	for cX := int32(0); cX < width; cX++ {
		for cY := int32(0); cY < height; cY++ {
			for cZ := int32(0); cZ < depth; cZ++ {
				m.NewChunk(cX, cY, cZ)
			}
		}
	}

	waves := make([]wave, 4)
	for i := range waves {
		scale := float64(int(1) << i)
		waves[i] = wave{
			fx:    (rng.Float64() + 0.5) * scale / 64,
			fz:    (rng.Float64() + 0.5) * scale / 64,
			phase: rng.Float64() * 2 * math.Pi,
			amp:   opts.Amplitude / scale,
		}
	}

	sizeX, sizeY, sizeZ := width*CHUNK_SIZE, height*CHUNK_SIZE, depth*CHUNK_SIZE
	for x := int32(0); x < sizeX; x++ {
		for z := int32(0); z < sizeZ; z++ {
			h := float64(opts.BaseHeight)
			for _, w := range waves {
				h += w.amp * math.Sin(float64(x)*w.fx+w.phase) * math.Cos(float64(z)*w.fz-w.phase)
			}
			surface := min(max(int32(h), 1), sizeY-1)
			for y := int32(0); y < surface; y++ {
				id := BlockStone
				if y == surface-1 {
					id = BlockGrass
				} else if y >= surface-4 {
					id = BlockDirt
				}
				m.SetBlock(x, y, z, NewBlock(id))
			}
		}
	}

	for i := 0; i < opts.Caves; i++ {
		carveTunnel(m, rng, sizeX, opts.BaseHeight, sizeZ)
	}
	for i := 0; i < opts.GlassTowers; i++ {
		x, z := rng.Int31n(sizeX), rng.Int31n(sizeZ)
		y := surfaceAt(m, x, z, sizeY)
		for top := min(y+CHUNK_SIZE, sizeY); y < top; y++ {
			m.SetBlock(x, y, z, NewBlock(BlockGlass))
		}
	}

	util.LogVoxelInfo("generated terrain", "chunks", Int3{width, height, depth}, "seed", opts.Seed)
	return m
}

// carveTunnel walks a random worm through the ground and clears a small
// sphere around every step.
func carveTunnel(m *Map, rng *rand.Rand, sizeX, baseHeight, sizeZ int32) {
	px := float64(rng.Int31n(sizeX))
	py := float64(rng.Int31n(max(baseHeight-4, 1))) + 2
	pz := float64(rng.Int31n(sizeZ))
	yaw, pitch := rng.Float64()*2*math.Pi, 0.0
	radius := 1.5 + rng.Float64()*1.5
	steps := 40 + rng.Intn(80)
	for s := 0; s < steps; s++ {
		r := int32(math.Ceil(radius))
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				for dz := -r; dz <= r; dz++ {
					if float64(dx*dx+dy*dy+dz*dz) > radius*radius {
						continue
					}
					x, y, z := int32(px)+dx, int32(py)+dy, int32(pz)+dz
					if y <= 0 {
						continue
					}
					if b := m.GetGlobalBlock(x, y, z); b != nil && !b.IsAir() {
						m.SetBlock(x, y, z, NewAirBlock())
					}
				}
			}
		}
		yaw += (rng.Float64() - 0.5) * 0.6
		pitch = util.Clamp(pitch+(rng.Float64()-0.5)*0.3, -0.5, 0.5)
		px += math.Cos(yaw) * math.Cos(pitch)
		py += math.Sin(pitch)
		pz += math.Sin(yaw) * math.Cos(pitch)
	}
}

func surfaceAt(m *Map, x, z, sizeY int32) int32 {
	for y := sizeY - 1; y >= 0; y-- {
		if m.IsSolidBlockAt(x, y, z) {
			return y + 1
		}
	}
	return 0
}
