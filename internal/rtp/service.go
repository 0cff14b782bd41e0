package rtp

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/sched"
	"github.com/udisondev/rtp/internal/world"
)

// Deps are the host facilities the service runs on.
type Deps struct {
	Loop    *sched.Loop
	Pool    *sched.Pool
	Players Players
	Worlds  Worlds
	History History
	Rand    rand.Source // nil = random seed
}

// Service reacts to host events: first entry into the target world starts a
// countdown that ends in a random teleport.
type Service struct {
	cfg       config.Plugin
	players   Players
	history   History
	msg       messenger
	countdown *Countdown
	executor  *Executor
}

// NewService validates cfg and wires the countdown and the executor.
func NewService(cfg config.Plugin, d Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating plugin config: %w", err)
	}
	if _, ok := d.Worlds.World(cfg.TargetWorld); !ok {
		slog.Warn("target world is not loaded", "world", cfg.TargetWorld)
	}

	s := &Service{
		cfg:     cfg,
		players: d.Players,
		history: d.History,
		msg:     messenger{messages: cfg.Messages},
	}
	finder := NewFinder(cfg.Radius, cfg.MaxSearchAttempts, d.Rand)
	s.executor = NewExecutor(d.Loop, d.Pool, finder, d.Worlds, cfg.Messages)
	s.countdown = NewCountdown(d.Loop, d.Players, cfg.CountdownSeconds, cfg.Messages, s.teleport)
	return s, nil
}

// Countdown exposes the countdown table.
func (s *Service) Countdown() *Countdown { return s.countdown }

// OnWorldEntered handles a player arriving in worldName.
func (s *Service) OnWorldEntered(id uuid.UUID, worldName string) {
	if worldName != s.cfg.TargetWorld {
		return
	}
	p, ok := s.players.Player(id)
	if !ok || !p.Online() {
		return
	}

	if s.history.HasTeleported(id, worldName) {
		s.msg.send(p, config.MsgAlreadyTeleported)
		return
	}
	if s.countdown.Active(id) {
		return
	}
	s.countdown.Start(p)
}

// OnDisconnected drops any countdown of id.
func (s *Service) OnDisconnected(id uuid.UUID) {
	s.countdown.Cancel(id)
}

// Shutdown cancels all countdowns. In-flight searches finish on their own.
func (s *Service) Shutdown() {
	n := s.countdown.Len()
	s.countdown.CancelAll()
	slog.Info("random teleport stopped", "cancelled_countdowns", n)
}

func (s *Service) teleport(p Player) {
	id, name, worldName := p.ID(), p.Name(), p.WorldName()
	s.executor.Teleport(p, func(c world.Coordinate) {
		s.history.MarkTeleported(id, worldName)
		slog.Info("player teleported",
			"player", name,
			"world", worldName,
			"x", c.X,
			"y", c.Y,
			"z", c.Z)
	})
}
