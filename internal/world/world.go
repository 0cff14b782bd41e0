package world

import "context"

// World is a block world that the teleport logic can query.
//
// Block reads (BlockAt, HighestBlockYAt) are safe to call from any goroutine
// and never load terrain: a chunk that is not resident is answered from the
// world generator. LoadChunk makes a chunk resident and blocks until it is.
type World interface {
	Name() string

	// Spawn returns the world's spawn block.
	Spawn() Coordinate

	// MinHeight is the lowest valid block Y (inclusive).
	MinHeight() int

	// MaxHeight is the build limit (exclusive).
	MaxHeight() int

	// HighestBlockYAt returns the Y of the highest non-air block in column (x, z),
	// or MinHeight()-1 when the column is empty.
	HighestBlockYAt(x, z int) int

	// BlockAt returns the material at (x, y, z). Positions above the build limit
	// read as Air, positions below the floor read as VoidAir.
	BlockAt(x, y, z int) Material

	// LoadChunk ensures the chunk is resident.
	LoadChunk(ctx context.Context, pos ChunkPos) error
}

// InRange reports whether y is a valid block height in w.
func InRange(w World, y int) bool {
	return y >= w.MinHeight() && y < w.MaxHeight()
}

// Block returns the material at c.
func Block(w World, c Coordinate) Material {
	return w.BlockAt(c.X, c.Y, c.Z)
}
