package rtp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/rtp/internal/sched"
	"github.com/udisondev/rtp/internal/world"
)

// flatWorld has Stone up to the column top, the column's ground block at top,
// and Air above.
type flatWorld struct {
	name       string
	minY, maxY int
	spawn      world.Coordinate
	column     func(x, z int) (top int, ground world.Material)

	loadErr error
	loads   atomic.Int32
}

func newFlatWorld(name string, top int, ground world.Material) *flatWorld {
	return &flatWorld{
		name:  name,
		minY:  -64,
		maxY:  320,
		spawn: world.Coordinate{X: 0, Y: top + 1, Z: 0},
		column: func(int, int) (int, world.Material) {
			return top, ground
		},
	}
}

func (w *flatWorld) Name() string { return w.name }
func (w *flatWorld) Spawn() world.Coordinate { return w.spawn }
func (w *flatWorld) MinHeight() int { return w.minY }
func (w *flatWorld) MaxHeight() int { return w.maxY }

func (w *flatWorld) HighestBlockYAt(x, z int) int {
	top, _ := w.column(x, z)
	return top
}

func (w *flatWorld) BlockAt(x, y, z int) world.Material {
	if y >= w.maxY {
		return world.Air
	}
	if y < w.minY {
		return world.VoidAir
	}
	top, ground := w.column(x, z)
	switch {
	case y == top:
		return ground
	case y < top:
		return world.Stone
	}
	return world.Air
}

func (w *flatWorld) LoadChunk(ctx context.Context, _ world.ChunkPos) error {
	w.loads.Add(1)
	return w.loadErr
}

type worldSet map[string]world.World

func (s worldSet) World(name string) (world.World, bool) {
	w, ok := s[name]
	return w, ok
}

type fakePlayer struct {
	id     uuid.UUID
	name   string
	world  string
	online bool
	pos    world.Coordinate

	teleportErr error
	teleports   []world.Coordinate
	messages    []string
}

func newPlayer(name, worldName string) *fakePlayer {
	return &fakePlayer{id: uuid.New(), name: name, world: worldName, online: true}
}

func (p *fakePlayer) ID() uuid.UUID { return p.id }
func (p *fakePlayer) Name() string { return p.name }
func (p *fakePlayer) Online() bool { return p.online }
func (p *fakePlayer) WorldName() string { return p.world }
func (p *fakePlayer) SendMessage(text string) { p.messages = append(p.messages, text) }

func (p *fakePlayer) Teleport(c world.Coordinate) error {
	if p.teleportErr != nil {
		return p.teleportErr
	}
	p.pos = c
	p.teleports = append(p.teleports, c)
	return nil
}

type playerSet map[uuid.UUID]*fakePlayer

func (s playerSet) Player(id uuid.UUID) (Player, bool) {
	p, ok := s[id]
	if !ok {
		return nil, false
	}
	return p, true
}

func (s playerSet) add(p *fakePlayer) *fakePlayer {
	s[p.id] = p
	return p
}

type memHistory struct {
	mu   sync.Mutex
	seen map[uuid.UUID]map[string]bool
}

func newMemHistory() *memHistory {
	return &memHistory{seen: make(map[uuid.UUID]map[string]bool)}
}

func (h *memHistory) HasTeleported(id uuid.UUID, w string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seen[id][w]
}

func (h *memHistory) MarkTeleported(id uuid.UUID, w string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen[id] == nil {
		h.seen[id] = make(map[string]bool)
	}
	h.seen[id][w] = true
}

var errBoom = errors.New("boom")

// startPool runs a background pool until the test ends.
func startPool(t *testing.T, workers int) *sched.Pool {
	t.Helper()
	pool := sched.NewPool(workers)
	startPoolFor(t, pool)
	return pool
}

// startPoolFor runs an already created pool until the test ends.
func startPoolFor(t *testing.T, pool *sched.Pool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// settle ticks loop until cond holds.
func settle(t *testing.T, loop *sched.Loop, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		loop.Advance(1)
		return cond()
	}, 5*time.Second, time.Millisecond)
}

// idle ticks loop for a while so any background work can land.
func idle(loop *sched.Loop) {
	for range 50 {
		loop.Advance(1)
		time.Sleep(time.Millisecond)
	}
}
