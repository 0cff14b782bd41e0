package world

// Material identifies a block type.
// Stored as one byte per block in chunk data, so values must stay below 256
// and must never be renumbered (chunk files on disk depend on them).
type Material uint8

const (
	Air Material = iota
	CaveAir
	VoidAir
	Stone
	Dirt
	GrassBlock
	Sand
	Gravel
	Snow
	Log
	Leaves
	Glass
	ShortGrass
	Water
	Lava
	Bedrock
	Barrier

	materialCount
)

type materialInfo struct {
	name  string
	solid bool
}

var materials = [materialCount]materialInfo{
	Air:        {"air", false},
	CaveAir:    {"cave_air", false},
	VoidAir:    {"void_air", false},
	Stone:      {"stone", true},
	Dirt:       {"dirt", true},
	GrassBlock: {"grass_block", true},
	Sand:       {"sand", true},
	Gravel:     {"gravel", true},
	Snow:       {"snow_block", true},
	Log:        {"oak_log", true},
	Leaves:     {"oak_leaves", true},
	Glass:      {"glass", true},
	ShortGrass: {"short_grass", false},
	Water:      {"water", false},
	Lava:       {"lava", false},
	Bedrock:    {"bedrock", true},
	Barrier:    {"barrier", true},
}

// Valid reports whether m is a known material.
func (m Material) Valid() bool {
	return m < materialCount
}

// String returns the namespaced-less material name (e.g. "grass_block").
func (m Material) String() string {
	if !m.Valid() {
		return "unknown"
	}
	return materials[m].name
}

// Solid reports whether the block has a full collision box.
// Unknown materials are treated as non-solid.
func (m Material) Solid() bool {
	return m.Valid() && materials[m].solid
}

// Passable reports whether a player can occupy the block: air and cave air.
// VoidAir is what lies outside the world's vertical range and is not passable.
func (m Material) Passable() bool {
	return m == Air || m == CaveAir
}

// Liquid reports whether the block is water or lava.
func (m Material) Liquid() bool {
	return m == Water || m == Lava
}

// Standable reports whether a player can safely stand on top of the block:
// it must be solid and must not be a world boundary, bedrock or a liquid.
func (m Material) Standable() bool {
	if !m.Solid() {
		return false
	}
	switch m {
	case Barrier, Bedrock, Lava, Water:
		return false
	}
	return true
}
