package world

import "fmt"

// Region is a rectangular search area expressed as offsets from a world's spawn.
// Bounds are inclusive on both ends.
type Region struct {
	MinX int `yaml:"min-x"`
	MaxX int `yaml:"max-x"`
	MinZ int `yaml:"min-z"`
	MaxZ int `yaml:"max-z"`
}

// Validate checks MinX <= MaxX and MinZ <= MaxZ.
func (r Region) Validate() error {
	if r.MinX > r.MaxX {
		return fmt.Errorf("region min-x %d is greater than max-x %d", r.MinX, r.MaxX)
	}
	if r.MinZ > r.MaxZ {
		return fmt.Errorf("region min-z %d is greater than max-z %d", r.MinZ, r.MaxZ)
	}
	return nil
}

// Width returns the number of columns along X.
func (r Region) Width() int {
	return r.MaxX - r.MinX + 1
}

// Depth returns the number of columns along Z.
func (r Region) Depth() int {
	return r.MaxZ - r.MinZ + 1
}

// Contains reports whether the column (x, z) lies in the region anchored at origin.
func (r Region) Contains(origin Coordinate, x, z int) bool {
	dx := x - origin.X
	dz := z - origin.Z
	return dx >= r.MinX && dx <= r.MaxX && dz >= r.MinZ && dz <= r.MaxZ
}
