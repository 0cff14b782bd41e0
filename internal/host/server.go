// Package host is a minimal game host: loaded worlds, online players and the
// world-change and quit events a plugin listens to.
//
// Server and Player are not safe for concurrent use. Everything runs on the
// primary context; network code reaches them through sched.Loop.Post.
package host

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/udisondev/rtp/internal/world"
)

var (
	ErrUnknownWorld = errors.New("unknown world")
	ErrPlayerExists = errors.New("player already online")
	ErrOutOfWorld   = errors.New("position outside world height")
	ErrNotOnline    = errors.New("player not online")
)

// Listener receives player events on the primary context.
type Listener interface {
	OnWorldEntered(id uuid.UUID, world string)
	OnDisconnected(id uuid.UUID)
}

// Server tracks worlds and online players.
type Server struct {
	worlds       map[string]world.World
	defaultWorld string
	players      map[uuid.UUID]*Player
	listeners    []Listener
}

// NewServer creates a server. Players join defaultWorld.
func NewServer(worlds []world.World, defaultWorld string) (*Server, error) {
	s := &Server{
		worlds:       make(map[string]world.World, len(worlds)),
		defaultWorld: defaultWorld,
		players:      make(map[uuid.UUID]*Player),
	}
	for _, w := range worlds {
		if _, dup := s.worlds[w.Name()]; dup {
			return nil, fmt.Errorf("world %q registered twice", w.Name())
		}
		s.worlds[w.Name()] = w
	}
	if _, ok := s.worlds[defaultWorld]; !ok {
		return nil, fmt.Errorf("default world %q: %w", defaultWorld, ErrUnknownWorld)
	}
	return s, nil
}

// Subscribe adds l to the listeners notified of player events.
func (s *Server) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// World returns the world called name.
func (s *Server) World(name string) (world.World, bool) {
	w, ok := s.worlds[name]
	return w, ok
}

// Player returns the online player with id.
func (s *Server) Player(id uuid.UUID) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Online returns the number of online players.
func (s *Server) Online() int {
	return len(s.players)
}

// Join brings a player online at the default world's spawn.
// Joining does not count as entering a world.
func (s *Server) Join(id uuid.UUID, name string) (*Player, error) {
	if _, ok := s.players[id]; ok {
		return nil, fmt.Errorf("joining %s: %w", id, ErrPlayerExists)
	}
	p := newPlayer(id, name, s.worlds[s.defaultWorld])
	s.players[id] = p
	p.setPosition(p.pos)

	slog.Info("player joined", "player", name, "id", id.String(), "world", s.defaultWorld)
	return p, nil
}

// ChangeWorld moves a player to the spawn of worldName and fires
// OnWorldEntered. Moving to the current world does nothing.
func (s *Server) ChangeWorld(id uuid.UUID, worldName string) error {
	p, ok := s.players[id]
	if !ok {
		return fmt.Errorf("changing world of %s: %w", id, ErrNotOnline)
	}
	w, ok := s.worlds[worldName]
	if !ok {
		return fmt.Errorf("changing world of %s to %q: %w", p.name, worldName, ErrUnknownWorld)
	}
	if p.world.Name() == worldName {
		return nil
	}

	from := p.world.Name()
	p.world = w
	p.setPosition(w.Spawn().Center())
	slog.Info("player changed world", "player", p.name, "from", from, "to", worldName)

	for _, l := range s.listeners {
		l.OnWorldEntered(id, worldName)
	}
	return nil
}

// Quit takes a player offline and fires OnDisconnected. Unknown ids are ignored.
func (s *Server) Quit(id uuid.UUID) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	delete(s.players, id)
	p.disconnect()
	slog.Info("player quit", "player", p.name, "id", id.String())

	for _, l := range s.listeners {
		l.OnDisconnected(id)
	}
}

// QuitAll disconnects every player.
func (s *Server) QuitAll() {
	for id := range s.players {
		s.Quit(id)
	}
}
