package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/sched"
	"github.com/udisondev/rtp/internal/world"
)

type serviceFixture struct {
	loop    *sched.Loop
	pool    *sched.Pool
	world   *flatWorld
	players playerSet
	history *memHistory
	svc     *Service
}

func newServiceFixture(t *testing.T, cfg config.Plugin, runPool bool) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		loop:    sched.NewLoop(0),
		pool:    sched.NewPool(2),
		world:   newFlatWorld("world", 63, world.GrassBlock),
		players: make(playerSet),
		history: newMemHistory(),
	}
	f.world.spawn = world.Coordinate{X: 0, Y: 64, Z: 0}
	if runPool {
		startPoolFor(t, f.pool)
	}

	lobby := newFlatWorld("lobby", 70, world.Stone)
	svc, err := NewService(cfg, Deps{
		Loop:    f.loop,
		Pool:    f.pool,
		Players: f.players,
		Worlds:  worldSet{"world": f.world, "lobby": lobby},
		History: f.history,
		Rand:    seeded(21),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestService_EndToEnd(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), true)
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	require.True(t, f.svc.Countdown().Active(p.id))

	f.loop.Advance(sched.TicksPerSecond)
	f.loop.Advance(sched.TicksPerSecond)
	require.Equal(t, []string{
		"§eYou will be teleported to a random location in §63 §eseconds...",
		"§eTeleporting in §62§e...",
		"§eTeleporting in §61§e...",
	}, p.messages)
	assert.Empty(t, p.teleports)

	f.loop.Advance(sched.TicksPerSecond)
	assert.False(t, f.svc.Countdown().Active(p.id))
	assert.Equal(t, "§aTeleporting...", p.messages[3])

	settle(t, f.loop, func() bool { return f.history.HasTeleported(p.id, "world") })

	require.Len(t, p.teleports, 1)
	c := p.teleports[0]
	assert.True(t, IsSafe(f.world, c))
	assert.GreaterOrEqual(t, c.Y, MinSafeY)
	assert.True(t, world.Region{MinX: -1000, MaxX: 1000, MinZ: -1000, MaxZ: 1000}.Contains(f.world.Spawn(), c.X, c.Z))
	assert.False(t, f.history.HasTeleported(p.id, "lobby"))

	// Second entry: no countdown, just the notice.
	f.svc.OnWorldEntered(p.id, "world")
	assert.False(t, f.svc.Countdown().Active(p.id))
	assert.Equal(t, "§7You have already been teleported in this world.", p.messages[len(p.messages)-1])
}

func TestService_IgnoresOtherWorlds(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), false)
	p := f.players.add(newPlayer("alice", "lobby"))

	f.svc.OnWorldEntered(p.id, "lobby")
	assert.False(t, f.svc.Countdown().Active(p.id))
	assert.Empty(t, p.messages)
}

func TestService_UnknownOrOfflinePlayer(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), false)
	ghost := newPlayer("ghost", "world")
	f.svc.OnWorldEntered(ghost.id, "world")

	off := f.players.add(newPlayer("off", "world"))
	off.online = false
	f.svc.OnWorldEntered(off.id, "world")

	assert.Zero(t, f.svc.Countdown().Len())
}

func TestService_ActiveCountdownIsKept(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), false)
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	f.loop.Advance(sched.TicksPerSecond)
	f.svc.OnWorldEntered(p.id, "world")

	assert.Len(t, p.messages, 2, "second entry does not restart the countdown")
	f.loop.Advance(sched.TicksPerSecond * 2)
	assert.False(t, f.svc.Countdown().Active(p.id))
	assert.Equal(t, 1, f.pool.Queued(), "teleport queued after the original three seconds")
}

func TestService_DisconnectDuringCountdown(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), true)
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	f.loop.Advance(sched.TicksPerSecond)

	p.online = false
	f.svc.OnDisconnected(p.id)
	assert.False(t, f.svc.Countdown().Active(p.id))

	f.loop.Advance(sched.TicksPerSecond * 5)
	idle(f.loop)
	assert.Empty(t, p.teleports)
	assert.False(t, f.history.HasTeleported(p.id, "world"))
}

func TestService_DisconnectAtTickBoundary(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), true)
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	f.loop.Advance(sched.TicksPerSecond*3 - 1)
	require.True(t, f.svc.Countdown().Active(p.id))

	// Quit is delivered through the loop and lands in the same tick as the
	// final countdown tick. Posted work runs before timers.
	f.loop.Post(func() {
		p.online = false
		delete(f.players, p.id)
		f.svc.OnDisconnected(p.id)
	})
	f.loop.Advance(1)

	idle(f.loop)
	assert.False(t, f.svc.Countdown().Active(p.id))
	assert.Zero(t, f.pool.Queued())
	assert.Empty(t, p.teleports)
	assert.False(t, f.history.HasTeleported(p.id, "world"))
}

func TestService_DisconnectDuringSearch(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), false)
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	f.loop.Advance(sched.TicksPerSecond * 3)
	require.Equal(t, 1, f.pool.Queued())

	p.online = false
	f.svc.OnDisconnected(p.id)
	startPoolFor(t, f.pool)

	settle(t, f.loop, func() bool { return f.world.loads.Load() == 1 })
	idle(f.loop)
	assert.Empty(t, p.teleports)
	assert.False(t, f.history.HasTeleported(p.id, "world"), "aborted teleport is not recorded")
}

func TestService_NoSafeLocation(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.MaxSearchAttempts = 10
	f := newServiceFixture(t, cfg, true)
	f.world.column = func(int, int) (int, world.Material) { return 63, world.Lava }
	p := f.players.add(newPlayer("alice", "world"))

	f.svc.OnWorldEntered(p.id, "world")
	f.loop.Advance(sched.TicksPerSecond * 3)
	settle(t, f.loop, func() bool {
		return len(p.messages) > 0 && p.messages[len(p.messages)-1] == "§cCould not find a safe location. Please try again later."
	})

	assert.False(t, f.history.HasTeleported(p.id, "world"))

	// Not recorded, so entering again starts over.
	f.svc.OnWorldEntered(p.id, "world")
	assert.True(t, f.svc.Countdown().Active(p.id))
}

func TestService_Shutdown(t *testing.T) {
	f := newServiceFixture(t, config.DefaultPlugin(), false)
	for _, name := range []string{"a", "b"} {
		p := f.players.add(newPlayer(name, "world"))
		f.svc.OnWorldEntered(p.id, "world")
	}
	require.Equal(t, 2, f.svc.Countdown().Len())

	f.svc.Shutdown()
	assert.Zero(t, f.svc.Countdown().Len())
	f.loop.Advance(sched.TicksPerSecond * 5)
	assert.Zero(t, f.pool.Queued())
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := config.DefaultPlugin()
	cfg.CountdownSeconds = 0
	_, err := NewService(cfg, Deps{Worlds: worldSet{}})
	assert.Error(t, err)
}
