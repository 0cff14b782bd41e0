package rtp

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/udisondev/rtp/internal/world"
)

// MinSafeY is the lowest Y a player may be placed at. Keeps results out of caves.
const MinSafeY = 60

// ctxCheckEvery is how many sampled columns pass between context checks.
const ctxCheckEvery = 64

// ErrNoSafeLocation is returned when the attempt budget runs out.
var ErrNoSafeLocation = errors.New("no safe location found")

// Finder picks random safe coordinates inside a region around a world's spawn.
// Safe for concurrent use.
type Finder struct {
	region      world.Region
	maxAttempts int // 0 = unbounded

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFinder creates a finder. A nil src seeds from the runtime's random source.
func NewFinder(region world.Region, maxAttempts int, src rand.Source) *Finder {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Finder{
		region:      region,
		maxAttempts: maxAttempts,
		rng:         rand.New(src),
	}
}

// between returns a uniform int in [lo, hi].
func (f *Finder) between(lo, hi int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo + f.rng.IntN(hi-lo+1)
}

// Find samples columns until one holds a safe coordinate.
func (f *Finder) Find(ctx context.Context, w world.World) (world.Coordinate, error) {
	if w == nil {
		return world.Coordinate{}, errors.New("nil world")
	}
	spawn := w.Spawn()

	for attempt := 0; f.maxAttempts == 0 || attempt < f.maxAttempts; attempt++ {
		if attempt%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return world.Coordinate{}, err
			}
		}

		x := spawn.X + f.between(f.region.MinX, f.region.MaxX)
		z := spawn.Z + f.between(f.region.MinZ, f.region.MaxZ)

		c, ok := highestSafe(w, x, z)
		if ok && IsSafe(w, c) {
			return c, nil
		}
	}
	return world.Coordinate{}, fmt.Errorf("searching %s after %d attempts: %w", w.Name(), f.maxAttempts, ErrNoSafeLocation)
}

// highestSafe scans the column top-down for standable ground with two passable
// blocks above it and returns the position on top of that ground.
func highestSafe(w world.World, x, z int) (world.Coordinate, bool) {
	start := min(max(w.HighestBlockYAt(x, z), MinSafeY), w.MaxHeight()-1)
	floor := max(MinSafeY, w.MinHeight())

	for y := start; y >= floor; y-- {
		if !w.BlockAt(x, y, z).Standable() {
			continue
		}
		if w.BlockAt(x, y+1, z).Passable() && w.BlockAt(x, y+2, z).Passable() {
			return world.Coordinate{X: x, Y: y + 1, Z: z}, true
		}
	}
	return world.Coordinate{}, false
}

// IsSafe reports whether a player can stand at c: feet and head in air, solid
// non-hazardous ground below, no liquid around, and c.Y at or above MinSafeY.
func IsSafe(w world.World, c world.Coordinate) bool {
	if w == nil {
		return false
	}
	if c.Y < w.MinHeight() || c.Y < MinSafeY {
		return false
	}

	feet := world.Block(w, c)
	head := world.Block(w, c.Up(1))
	ground := world.Block(w, c.Down(1))

	if feet.Liquid() || head.Liquid() || ground.Liquid() {
		return false
	}
	return feet.Passable() && head.Passable() && ground.Standable()
}
