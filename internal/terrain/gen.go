package terrain

import (
	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/world"
)

// Terrain shape.
const (
	baseScale   = 64 // lattice spacing of the broad height noise
	detailScale = 16 // lattice spacing of the detail noise
	lavaScale   = 24

	baseAmplitude   = 28
	detailAmplitude = 6
	snowLine        = 84
	lavaThreshold   = 0.88
	caveCeiling     = 40
)

// Generator produces deterministic terrain from a seed.
// It is stateless; every method is safe for concurrent use.
type Generator struct {
	Seed         int64
	MinY         int // inclusive
	MaxY         int // exclusive
	SeaLevel     int
	BorderRadius int // 0 = unbounded
}

// NewGenerator builds a generator from world config.
func NewGenerator(cfg config.WorldConfig) Generator {
	return Generator{
		Seed:         cfg.Seed,
		MinY:         cfg.MinHeight,
		MaxY:         cfg.MaxHeight,
		SeaLevel:     cfg.SeaLevel,
		BorderRadius: cfg.BorderRadius,
	}
}

// Column is the generated content of one (x, z) column.
type Column struct {
	X, Z    int
	Surface int // y of the topmost ground block
	Top     world.Material
	Filler  world.Material // the few blocks under Top
	Water   int            // water fills (Surface, Water]; Water <= Surface means dry
	Feature world.Material // block at Surface+1 (Air when none)
	Trunk   int            // tree trunk height above Surface, 0 = no tree
	Border  bool
	gen     *Generator
}

// Column computes the column at (x, z).
func (g *Generator) Column(x, z int) Column {
	c := Column{X: x, Z: z, Feature: world.Air, gen: g}

	h := g.SeaLevel - 8 +
		int(g.noise(x, z, baseScale, 1)*baseAmplitude) +
		int(g.noise(x, z, detailScale, 2)*detailAmplitude)
	c.Surface = clamp(h, g.MinY+1, g.MaxY-8)
	c.Water = c.Surface

	if g.BorderRadius > 0 && (abs(x) > g.BorderRadius || abs(z) > g.BorderRadius) {
		c.Border = true
		c.Top = world.Barrier
		c.Filler = world.Barrier
		return c
	}

	switch {
	case c.Surface < g.SeaLevel-3:
		c.Top, c.Filler = world.Gravel, world.Gravel
	case c.Surface <= g.SeaLevel+1:
		c.Top, c.Filler = world.Sand, world.Sand
	case c.Surface >= snowLine:
		c.Top, c.Filler = world.Snow, world.Stone
	default:
		c.Top, c.Filler = world.GrassBlock, world.Dirt
	}

	if c.Surface < g.SeaLevel {
		c.Water = g.SeaLevel
		return c
	}

	if c.Surface > g.SeaLevel+1 && g.noise(x, z, lavaScale, 3) > lavaThreshold {
		c.Top = world.Lava
		return c
	}

	if c.Top == world.GrassBlock {
		r := Hash2(g.Seed+4, x, z)
		switch {
		case r%97 == 0:
			c.Trunk = 3 + int(r>>8%3)
		case r%5 == 0:
			c.Feature = world.ShortGrass
		}
	}
	return c
}

// Highest returns the y of the topmost non-air block.
func (c Column) Highest() int {
	switch {
	case c.Trunk > 0:
		return c.Surface + c.Trunk + 1
	case c.Feature != world.Air:
		return c.Surface + 1
	case c.Water > c.Surface:
		return c.Water
	}
	return c.Surface
}

// At returns the block at height y.
func (c Column) At(y int) world.Material {
	g := c.gen
	switch {
	case y < g.MinY:
		return world.VoidAir
	case y >= g.MaxY:
		return world.Air
	case y == g.MinY:
		return world.Bedrock
	case c.Border && y <= c.Surface:
		return world.Barrier
	case y == c.Surface:
		return c.Top
	case y < c.Surface:
		if y >= c.Surface-3 {
			return c.Filler
		}
		if y == g.MinY+1 && Hash2(g.Seed+6, c.X, c.Z)%2 == 0 {
			return world.Bedrock
		}
		if y > g.MinY+4 && y < min(c.Surface-8, caveCeiling) && Hash3(g.Seed+7, c.X, y, c.Z)%11 == 0 {
			return world.CaveAir
		}
		return world.Stone
	case y <= c.Water:
		return world.Water
	case c.Trunk > 0:
		switch {
		case y <= c.Surface+c.Trunk:
			return world.Log
		case y == c.Surface+c.Trunk+1:
			return world.Leaves
		}
	case y == c.Surface+1:
		return c.Feature
	}
	return world.Air
}

// BlockAt returns the generated block at (x, y, z).
func (g *Generator) BlockAt(x, y, z int) world.Material {
	return g.Column(x, z).At(y)
}

// Generate builds the chunk at pos.
func (g *Generator) Generate(pos world.ChunkPos) *Chunk {
	ch := newChunk(pos, g.MinY, g.MaxY-g.MinY)
	for lz := range world.ChunkSize {
		for lx := range world.ChunkSize {
			col := g.Column(pos.BlockX()+lx, pos.BlockZ()+lz)
			top := min(col.Highest(), g.MaxY-1)
			for y := g.MinY; y <= top; y++ {
				ch.set(lx, y, lz, col.At(y))
			}
		}
	}
	ch.computeHeightmap()
	return ch
}

// noise is bilinear value noise in [0, 1) on a lattice of the given spacing.
func (g *Generator) noise(x, z, scale int, salt int64) float64 {
	seed := g.Seed*31 + salt
	x0, z0 := FloorDiv(x, scale), FloorDiv(z, scale)
	fx := smooth(float64(Mod(x, scale)) / float64(scale))
	fz := smooth(float64(Mod(z, scale)) / float64(scale))

	v00 := unit(Hash2(seed, x0, z0))
	v10 := unit(Hash2(seed, x0+1, z0))
	v01 := unit(Hash2(seed, x0, z0+1))
	v11 := unit(Hash2(seed, x0+1, z0+1))

	return lerp(lerp(v00, v10, fx), lerp(v01, v11, fx), fz)
}

func unit(h uint64) float64 {
	return float64(h>>11) / (1 << 53)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
