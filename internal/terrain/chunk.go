package terrain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/udisondev/rtp/internal/world"
)

const (
	chunkMagic   = "RTPC"
	chunkVersion = 1
	headerSize   = len(chunkMagic) + 1 + 2 + 2 // magic, version, minY int16, height uint16
)

// ErrCorruptChunk is returned when chunk data fails validation.
var ErrCorruptChunk = errors.New("corrupt chunk data")

// Chunk is a 16×16 column of blocks spanning the world's full height.
// Immutable once published to a World.
type Chunk struct {
	pos       world.ChunkPos
	minY      int
	height    int
	blocks    []world.Material // index: ((y-minY)*16 + lz)*16 + lx
	heightmap [world.ChunkSize * world.ChunkSize]int16
}

func newChunk(pos world.ChunkPos, minY, height int) *Chunk {
	return &Chunk{
		pos:    pos,
		minY:   minY,
		height: height,
		blocks: make([]world.Material, height*world.ChunkSize*world.ChunkSize),
	}
}

// Pos returns the chunk position.
func (c *Chunk) Pos() world.ChunkPos {
	return c.pos
}

func (c *Chunk) index(lx, y, lz int) int {
	return ((y-c.minY)*world.ChunkSize+lz)*world.ChunkSize + lx
}

// Block returns the block at local column (lx, lz) and world height y.
func (c *Chunk) Block(lx, y, lz int) world.Material {
	if y < c.minY {
		return world.VoidAir
	}
	if y >= c.minY+c.height {
		return world.Air
	}
	return c.blocks[c.index(lx, y, lz)]
}

func (c *Chunk) set(lx, y, lz int, m world.Material) {
	c.blocks[c.index(lx, y, lz)] = m
}

// Highest returns the topmost non-air y in the local column, or minY-1.
func (c *Chunk) Highest(lx, lz int) int {
	return int(c.heightmap[lz*world.ChunkSize+lx])
}

func (c *Chunk) computeHeightmap() {
	for lz := range world.ChunkSize {
		for lx := range world.ChunkSize {
			top := c.minY - 1
			for y := c.minY + c.height - 1; y >= c.minY; y-- {
				m := c.Block(lx, y, lz)
				if m != world.Air && m != world.CaveAir && m != world.VoidAir {
					top = y
					break
				}
			}
			c.heightmap[lz*world.ChunkSize+lx] = int16(top)
		}
	}
}

// MarshalBinary encodes the chunk (uncompressed).
func (c *Chunk) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize, headerSize+len(c.blocks))
	copy(buf, chunkMagic)
	buf[4] = chunkVersion
	binary.LittleEndian.PutUint16(buf[5:], uint16(int16(c.minY)))
	binary.LittleEndian.PutUint16(buf[7:], uint16(c.height))
	for _, m := range c.blocks {
		buf = append(buf, byte(m))
	}
	return buf, nil
}

// decodeChunk parses MarshalBinary output and checks it matches the world's height range.
func decodeChunk(pos world.ChunkPos, data []byte, minY, height int) (*Chunk, error) {
	if len(data) < headerSize || string(data[:4]) != chunkMagic {
		return nil, fmt.Errorf("chunk %s: bad header: %w", pos, ErrCorruptChunk)
	}
	if data[4] != chunkVersion {
		return nil, fmt.Errorf("chunk %s: unsupported version %d: %w", pos, data[4], ErrCorruptChunk)
	}
	gotMinY := int(int16(binary.LittleEndian.Uint16(data[5:])))
	gotHeight := int(binary.LittleEndian.Uint16(data[7:]))
	if gotMinY != minY || gotHeight != height {
		return nil, fmt.Errorf("chunk %s: height range [%d,+%d) does not match world [%d,+%d): %w",
			pos, gotMinY, gotHeight, minY, height, ErrCorruptChunk)
	}

	ch := newChunk(pos, minY, height)
	body := data[headerSize:]
	if len(body) != len(ch.blocks) {
		return nil, fmt.Errorf("chunk %s: %d blocks, want %d: %w", pos, len(body), len(ch.blocks), ErrCorruptChunk)
	}
	for i, b := range body {
		m := world.Material(b)
		if !m.Valid() {
			return nil, fmt.Errorf("chunk %s: unknown material %d: %w", pos, b, ErrCorruptChunk)
		}
		ch.blocks[i] = m
	}
	ch.computeHeightmap()
	return ch, nil
}
