package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkShift converts block coordinates to chunk coordinates (16 blocks per chunk).
const (
	ChunkShift = 4
	ChunkSize  = 1 << ChunkShift // 16
)

// Coordinate is a block position in world space.
type Coordinate struct {
	X, Y, Z int
}

// Up returns the coordinate n blocks above c.
func (c Coordinate) Up(n int) Coordinate {
	return Coordinate{X: c.X, Y: c.Y + n, Z: c.Z}
}

// Down returns the coordinate n blocks below c.
func (c Coordinate) Down(n int) Coordinate {
	return Coordinate{X: c.X, Y: c.Y - n, Z: c.Z}
}

// Center returns the standing position for a player at c:
// centered on the block horizontally, feet at the block's bottom face.
func (c Coordinate) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y), float64(c.Z) + 0.5}
}

// Chunk returns the chunk column containing c.
func (c Coordinate) Chunk() ChunkPos {
	return ChunkPos{X: c.X >> ChunkShift, Z: c.Z >> ChunkShift}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}

// ChunkPos identifies a 16×16 column of blocks.
type ChunkPos struct {
	X, Z int
}

// BlockX returns the world X of the chunk's first column.
func (p ChunkPos) BlockX() int {
	return p.X << ChunkShift
}

// BlockZ returns the world Z of the chunk's first column.
func (p ChunkPos) BlockZ() int {
	return p.Z << ChunkShift
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("[%d, %d]", p.X, p.Z)
}

// FromVec3 returns the block containing the position v.
func FromVec3(v mgl64.Vec3) Coordinate {
	return Coordinate{
		X: int(math.Floor(v.X())),
		Y: int(math.Floor(v.Y())),
		Z: int(math.Floor(v.Z())),
	}
}
