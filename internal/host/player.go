package host

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/udisondev/rtp/internal/chat"
	"github.com/udisondev/rtp/internal/world"
)

// OutboxSize is the per-player packet queue length.
const OutboxSize = 64

// Packet types sent to clients.
const (
	PacketChat     = "chat"
	PacketPosition = "position"
	PacketError    = "error"
)

// Packet is an outbound client message.
type Packet struct {
	Type  string      `json:"type"`
	Text  string      `json:"text,omitempty"`
	World string      `json:"world,omitempty"`
	Pos   *mgl64.Vec3 `json:"pos,omitempty"`
}

// Player is an online player. All methods must be called on the primary context.
type Player struct {
	id     uuid.UUID
	name   string
	world  world.World
	pos    mgl64.Vec3
	online bool
	out    chan Packet
}

func newPlayer(id uuid.UUID, name string, w world.World) *Player {
	return &Player{
		id:     id,
		name:   name,
		world:  w,
		pos:    w.Spawn().Center(),
		online: true,
		out:    make(chan Packet, OutboxSize),
	}
}

func (p *Player) ID() uuid.UUID { return p.id }

func (p *Player) Name() string { return p.name }

func (p *Player) Online() bool { return p.online }

func (p *Player) World() world.World { return p.world }

func (p *Player) WorldName() string { return p.world.Name() }

// Position returns the player's feet position.
func (p *Player) Position() mgl64.Vec3 { return p.pos }

// Outbox is closed when the player quits.
func (p *Player) Outbox() <-chan Packet { return p.out }

// SendMessage queues a chat line. Blank text is dropped.
func (p *Player) SendMessage(text string) {
	if chat.Blank(text) {
		return
	}
	slog.Debug("chat to player", "player", p.name, "text", chat.Strip(text))
	p.send(Packet{Type: PacketChat, Text: text})
}

// SendError reports a rejected request to the client.
func (p *Player) SendError(text string) {
	p.send(Packet{Type: PacketError, Text: text})
}

// Teleport moves the player to the centre of block c in the current world.
func (p *Player) Teleport(c world.Coordinate) error {
	if !p.online {
		return fmt.Errorf("teleporting %s: player is offline", p.name)
	}
	if !world.InRange(p.world, c.Y) {
		return fmt.Errorf("teleporting %s to %s: %w", p.name, c, ErrOutOfWorld)
	}
	p.setPosition(c.Center())
	return nil
}

func (p *Player) setPosition(pos mgl64.Vec3) {
	p.pos = pos
	p.send(Packet{Type: PacketPosition, World: p.world.Name(), Pos: &pos})
}

// send never blocks; a full outbox drops the packet.
func (p *Player) send(pkt Packet) {
	if !p.online {
		return
	}
	select {
	case p.out <- pkt:
	default:
		slog.Warn("player outbox full, dropping packet", "player", p.name, "type", pkt.Type)
	}
}

func (p *Player) disconnect() {
	if !p.online {
		return
	}
	p.online = false
	close(p.out)
}
