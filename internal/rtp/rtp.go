// Package rtp teleports players to a random safe spot the first time they
// enter the target world.
//
// Everything except Finder.Find and World.LoadChunk runs on the primary
// context (sched.Loop). The search and terrain loading run on the background
// pool; their results come back through Loop.Post before any player is moved.
package rtp

import (
	"github.com/google/uuid"

	"github.com/udisondev/rtp/internal/chat"
	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/world"
)

// Player is an online player as seen by the host.
// Methods are called on the primary context only.
type Player interface {
	ID() uuid.UUID
	Name() string
	Online() bool
	WorldName() string
	// SendMessage delivers already formatted text.
	SendMessage(text string)
	// Teleport moves the player to c in their current world.
	Teleport(c world.Coordinate) error
}

// Players looks up online players.
type Players interface {
	Player(id uuid.UUID) (Player, bool)
}

// Worlds looks up loaded worlds.
type Worlds interface {
	World(name string) (world.World, bool)
}

// History remembers who was teleported where.
type History interface {
	HasTeleported(id uuid.UUID, world string) bool
	MarkTeleported(id uuid.UUID, world string)
}

type messenger struct {
	messages config.Messages
}

// send formats and delivers the template for key. Empty templates are skipped.
func (m messenger) send(p Player, key string, pairs ...string) {
	tpl := m.messages.Get(key)
	if chat.Blank(tpl) {
		return
	}
	p.SendMessage(chat.Colorize(chat.Format(tpl, pairs...)))
}
