package rtp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/sched"
	"github.com/udisondev/rtp/internal/world"
)

// Phase is a step of a teleport.
type Phase int

const (
	PhaseRequested Phase = iota
	PhaseSearching
	PhaseLoadingTerrain
	PhaseLoadFailed
	PhaseMoving
	PhaseMovingBestEffort
	PhaseDone
	PhaseAborted
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseRequested:        "requested",
	PhaseSearching:        "searching",
	PhaseLoadingTerrain:   "loading_terrain",
	PhaseLoadFailed:       "load_failed",
	PhaseMoving:           "moving",
	PhaseMovingBestEffort: "moving_best_effort",
	PhaseDone:             "done",
	PhaseAborted:          "aborted",
	PhaseFailed:           "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Executor moves players to safe spots. Methods are called on the primary
// context; the search and chunk loading go to the pool.
type Executor struct {
	loop   *sched.Loop
	pool   *sched.Pool
	finder *Finder
	worlds Worlds
	msg    messenger
}

// NewExecutor creates an executor.
func NewExecutor(loop *sched.Loop, pool *sched.Pool, finder *Finder, worlds Worlds, messages config.Messages) *Executor {
	return &Executor{
		loop:   loop,
		pool:   pool,
		finder: finder,
		worlds: worlds,
		msg:    messenger{messages: messages},
	}
}

func trace(player string, phase Phase, args ...any) {
	slog.Debug("teleport", append([]any{"player", player, "phase", phase.String()}, args...)...)
}

// Teleport finds a safe spot in p's current world and moves p there.
// onSuccess runs on the primary context after the move. It is skipped when
// p left or changed worlds in the meantime, or when no spot was found.
func (e *Executor) Teleport(p Player, onSuccess func(c world.Coordinate)) {
	if p == nil || !p.Online() {
		return
	}
	w, ok := e.worlds.World(p.WorldName())
	if !ok {
		slog.Warn("teleport requested in unknown world", "player", p.Name(), "world", p.WorldName())
		return
	}

	name := p.Name()
	trace(name, PhaseRequested, "world", w.Name())
	e.msg.send(p, config.MsgTeleporting)

	e.pool.Submit(func(ctx context.Context) {
		trace(name, PhaseSearching)
		c, err := e.finder.Find(ctx, w)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("failed to find safe location", "player", name, "world", w.Name(), "error", err)
			e.loop.Post(func() {
				trace(name, PhaseFailed)
				if p.Online() {
					e.msg.send(p, config.MsgTeleportFailed)
				}
			})
			return
		}
		e.load(ctx, p, name, w, c, onSuccess)
	})
}

// MoveTo loads the chunk at target in the background, then moves p there on
// the primary context if p is still online in w.
func (e *Executor) MoveTo(p Player, w world.World, target world.Coordinate, onSuccess func(c world.Coordinate)) {
	if p == nil || w == nil {
		return
	}
	name := p.Name()
	e.pool.Submit(func(ctx context.Context) {
		e.load(ctx, p, name, w, target, onSuccess)
	})
}

// load runs on the pool and must not touch p.
func (e *Executor) load(ctx context.Context, p Player, name string, w world.World, c world.Coordinate, onSuccess func(world.Coordinate)) {
	trace(name, PhaseLoadingTerrain, "x", c.X, "y", c.Y, "z", c.Z)

	bestEffort := false
	if err := w.LoadChunk(ctx, c.Chunk()); err != nil {
		if errors.Is(err, context.Canceled) {
			trace(name, PhaseAborted)
			return
		}
		slog.Warn("failed to load chunk for teleport",
			"player", name,
			"world", w.Name(),
			"chunk", c.Chunk().String(),
			"error", err)
		trace(name, PhaseLoadFailed)
		bestEffort = true
	}

	e.loop.Post(func() { e.finish(p, w, c, bestEffort, onSuccess) })
}

// finish runs on the primary context.
func (e *Executor) finish(p Player, w world.World, c world.Coordinate, bestEffort bool, onSuccess func(world.Coordinate)) {
	name := p.Name()
	if !p.Online() || p.WorldName() != w.Name() {
		trace(name, PhaseAborted)
		return
	}

	if bestEffort {
		trace(name, PhaseMovingBestEffort)
	} else {
		trace(name, PhaseMoving)
	}
	if err := p.Teleport(c); err != nil {
		slog.Warn("failed to teleport player", "player", name, "target", c.String(), "error", err)
	}

	trace(name, PhaseDone)
	if onSuccess != nil {
		onSuccess(c)
	}
}
