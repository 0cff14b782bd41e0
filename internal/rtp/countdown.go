package rtp

import (
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/sched"
)

type session struct {
	player    uuid.UUID
	world     string
	remaining int
	task      *sched.Task
}

// Countdown runs one per-player countdown at a time and calls onComplete when
// it reaches zero. Primary context only.
type Countdown struct {
	loop       *sched.Loop
	players    Players
	seconds    int
	msg        messenger
	onComplete func(p Player)

	sessions map[uuid.UUID]*session
}

// NewCountdown creates a countdown of the given length in seconds.
func NewCountdown(loop *sched.Loop, players Players, seconds int, messages config.Messages, onComplete func(p Player)) *Countdown {
	return &Countdown{
		loop:       loop,
		players:    players,
		seconds:    seconds,
		msg:        messenger{messages: messages},
		onComplete: onComplete,
		sessions:   make(map[uuid.UUID]*session),
	}
}

// Start begins a countdown for p, replacing any running one.
// Offline players are ignored.
func (c *Countdown) Start(p Player) {
	if p == nil || !p.Online() {
		return
	}
	id := p.ID()
	c.Cancel(id)

	s := &session{
		player:    id,
		world:     p.WorldName(),
		remaining: c.seconds,
	}
	c.sessions[id] = s

	c.msg.send(p, config.MsgCountdownStart, "seconds", strconv.Itoa(c.seconds))
	s.task = c.loop.Every(sched.TicksPerSecond, sched.TicksPerSecond, func() { c.tick(s) })

	slog.Debug("countdown started", "player", p.Name(), "world", s.world, "seconds", c.seconds)
}

func (c *Countdown) tick(s *session) {
	if c.sessions[s.player] != s {
		s.task.Cancel()
		return
	}

	p, ok := c.players.Player(s.player)
	if !ok || !p.Online() {
		c.Cancel(s.player)
		slog.Debug("countdown dropped, player offline", "player", s.player.String())
		return
	}

	s.remaining--
	if s.remaining > 0 {
		c.msg.send(p, config.MsgCountdownRemaining, "seconds", strconv.Itoa(s.remaining))
		return
	}

	c.Cancel(s.player)
	c.onComplete(p)
}

// Cancel stops the countdown for id. No-op if none is running.
func (c *Countdown) Cancel(id uuid.UUID) {
	s, ok := c.sessions[id]
	if !ok {
		return
	}
	delete(c.sessions, id)
	s.task.Cancel()
}

// CancelAll stops every countdown.
func (c *Countdown) CancelAll() {
	for id, s := range c.sessions {
		s.task.Cancel()
		delete(c.sessions, id)
	}
}

// Active reports whether id has a running countdown.
func (c *Countdown) Active(id uuid.UUID) bool {
	_, ok := c.sessions[id]
	return ok
}

// Len returns the number of running countdowns.
func (c *Countdown) Len() int {
	return len(c.sessions)
}
