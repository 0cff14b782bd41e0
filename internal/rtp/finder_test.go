package rtp

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/terrain"
	"github.com/udisondev/rtp/internal/world"
)

var region1000 = world.Region{MinX: -1000, MaxX: 1000, MinZ: -1000, MaxZ: 1000}

func seeded(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed*31+7)
}

func TestFinder_FlatWorld(t *testing.T) {
	w := newFlatWorld("world", 63, world.GrassBlock)
	f := NewFinder(region1000, 100, seeded(1))

	for range 200 {
		c, err := f.Find(context.Background(), w)
		require.NoError(t, err)
		assert.Equal(t, 64, c.Y)
		assert.True(t, region1000.Contains(w.Spawn(), c.X, c.Z))
		assert.True(t, IsSafe(w, c))
	}
}

func TestFinder_RegionAroundSpawn(t *testing.T) {
	w := newFlatWorld("world", 63, world.Stone)
	w.spawn = world.Coordinate{X: 0, Y: 64, Z: 0}
	f := NewFinder(region1000, 0, seeded(2))

	for range 500 {
		c, err := f.Find(context.Background(), w)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.X, -1000)
		assert.LessOrEqual(t, c.X, 1000)
		assert.GreaterOrEqual(t, c.Z, -1000)
		assert.LessOrEqual(t, c.Z, 1000)
		assert.GreaterOrEqual(t, c.Y, MinSafeY)
	}
}

func TestFinder_OffsetsFromSpawn(t *testing.T) {
	w := newFlatWorld("world", 70, world.Dirt)
	w.spawn = world.Coordinate{X: 5000, Y: 71, Z: -3000}
	f := NewFinder(world.Region{MinX: 10, MaxX: 10, MinZ: -4, MaxZ: -4}, 1, seeded(3))

	c, err := f.Find(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, world.Coordinate{X: 5010, Y: 71, Z: -3004}, c)
}

func TestFinder_LowGroundIsRejected(t *testing.T) {
	// Surface at 40: the scan stops at y=60 and never reaches it.
	w := newFlatWorld("world", 40, world.Stone)
	f := NewFinder(region1000, 50, seeded(4))

	_, err := f.Find(context.Background(), w)
	assert.ErrorIs(t, err, ErrNoSafeLocation)
}

func TestFinder_HazardousSurfaceExhausts(t *testing.T) {
	for _, ground := range []world.Material{world.Water, world.Lava, world.Bedrock, world.Barrier} {
		t.Run(ground.String(), func(t *testing.T) {
			w := newFlatWorld("world", 70, ground)
			f := NewFinder(region1000, 50, seeded(5))

			_, err := f.Find(context.Background(), w)
			assert.ErrorIs(t, err, ErrNoSafeLocation)
		})
	}
}

func TestFinder_SkipsHazardColumns(t *testing.T) {
	w := newFlatWorld("world", 70, world.GrassBlock)
	w.column = func(x, z int) (int, world.Material) {
		if x%2 != 0 {
			return 70, world.Lava
		}
		return 70, world.GrassBlock
	}
	f := NewFinder(region1000, 0, seeded(6))

	for range 100 {
		c, err := f.Find(context.Background(), w)
		require.NoError(t, err)
		assert.Zero(t, c.X%2)
	}
}

func TestFinder_CancelledContext(t *testing.T) {
	w := newFlatWorld("world", 10, world.Stone)
	f := NewFinder(region1000, 0, seeded(7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Find(ctx, w)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFinder_NilWorld(t *testing.T) {
	f := NewFinder(region1000, 1, nil)
	_, err := f.Find(context.Background(), nil)
	assert.Error(t, err)
}

func TestFinder_GeneratedTerrain(t *testing.T) {
	cfg := config.DefaultWorldConfig("world")
	cfg.Seed = 99
	w, err := terrain.New(cfg, "")
	require.NoError(t, err)
	defer w.Close()

	f := NewFinder(region1000, 0, seeded(8))
	for range 100 {
		c, err := f.Find(context.Background(), w)
		require.NoError(t, err)
		assert.True(t, IsSafe(w, c), "unsafe result %s", c)
		assert.True(t, region1000.Contains(w.Spawn(), c.X, c.Z))
	}
	assert.Zero(t, w.LoadedChunks(), "search must not load chunks")
}

func TestIsSafe(t *testing.T) {
	w := newFlatWorld("world", 63, world.GrassBlock)
	w.column = func(x, z int) (int, world.Material) {
		switch x {
		case 1:
			return 63, world.Water
		case 2:
			return 63, world.Lava
		case 3:
			return 50, world.Stone
		case 4:
			return 63, world.Barrier
		case 5:
			return 63, world.Bedrock
		}
		return 63, world.GrassBlock
	}

	tests := []struct {
		name string
		c    world.Coordinate
		want bool
	}{
		{"grass", world.Coordinate{X: 0, Y: 64}, true},
		{"inside ground", world.Coordinate{X: 0, Y: 63}, false},
		{"floating", world.Coordinate{X: 0, Y: 66}, false},
		{"water ground", world.Coordinate{X: 1, Y: 64}, false},
		{"lava ground", world.Coordinate{X: 2, Y: 64}, false},
		{"below 60", world.Coordinate{X: 3, Y: 51}, false},
		{"barrier", world.Coordinate{X: 4, Y: 64}, false},
		{"bedrock", world.Coordinate{X: 5, Y: 64}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafe(w, tt.c))
		})
	}

	assert.False(t, IsSafe(nil, world.Coordinate{Y: 64}))
}

func TestIsSafe_BelowWorldFloor(t *testing.T) {
	w := newFlatWorld("world", 100, world.Stone)
	w.minY = 120
	assert.False(t, IsSafe(w, world.Coordinate{Y: 101}))
}

func TestIsSafe_LiquidAround(t *testing.T) {
	w := newFlatWorld("world", 63, world.Stone)

	wet := &liquidAt{World: w, at: world.Coordinate{X: 0, Y: 64, Z: 0}, m: world.Water}
	assert.False(t, IsSafe(wet, world.Coordinate{X: 0, Y: 64, Z: 0}))

	wet.at = world.Coordinate{X: 0, Y: 65, Z: 0}
	wet.m = world.Lava
	assert.False(t, IsSafe(wet, world.Coordinate{X: 0, Y: 64, Z: 0}))
}

type liquidAt struct {
	world.World
	at world.Coordinate
	m  world.Material
}

func (l *liquidAt) BlockAt(x, y, z int) world.Material {
	if (world.Coordinate{X: x, Y: y, Z: z}) == l.at {
		return l.m
	}
	return l.World.BlockAt(x, y, z)
}
