// Package history records which players have already been teleported in which worlds.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FinalSaveTimeout bounds the save Run makes after its context is cancelled.
const FinalSaveTimeout = 5 * time.Second

// Record marks that a player was teleported in a world.
type Record struct {
	PlayerID uuid.UUID
	World    string
}

// Backend persists records. Insert must be idempotent.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Insert(ctx context.Context, rec Record) error
	Flush(ctx context.Context) error
	Close() error
}

// Store is the in-memory teleport history backed by a Backend.
//
// HasTeleported and MarkTeleported never touch the backend; new records are
// handed to a writer (Run) and persisted in the background.
type Store struct {
	backend      Backend
	autosave     time.Duration
	finalTimeout time.Duration

	mu   sync.RWMutex
	seen map[uuid.UUID]map[string]struct{}

	qmu     sync.Mutex
	pending []Record
	wake    chan struct{}

	writeMu sync.Mutex // serializes backend writes between Run and Close
}

// Open loads every record from backend.
func Open(ctx context.Context, backend Backend, autosave time.Duration) (*Store, error) {
	recs, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading teleport history: %w", err)
	}

	s := &Store{
		backend:      backend,
		autosave:     autosave,
		finalTimeout: FinalSaveTimeout,
		seen:         make(map[uuid.UUID]map[string]struct{}),
		wake:         make(chan struct{}, 1),
	}
	for _, r := range recs {
		s.add(r)
	}

	slog.Info("teleport history loaded", "records", len(recs))
	return s, nil
}

func (s *Store) add(r Record) bool {
	worlds, ok := s.seen[r.PlayerID]
	if !ok {
		worlds = make(map[string]struct{})
		s.seen[r.PlayerID] = worlds
	}
	if _, ok := worlds[r.World]; ok {
		return false
	}
	worlds[r.World] = struct{}{}
	return true
}

// HasTeleported reports whether id was already teleported in world.
func (s *Store) HasTeleported(id uuid.UUID, world string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id][world]
	return ok
}

// MarkTeleported records (id, world). Repeated calls are no-ops.
func (s *Store) MarkTeleported(id uuid.UUID, world string) {
	rec := Record{PlayerID: id, World: world}

	s.mu.Lock()
	added := s.add(rec)
	s.mu.Unlock()
	if !added {
		return
	}

	s.qmu.Lock()
	s.pending = append(s.pending, rec)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Worlds returns the sorted worlds id was teleported in.
func (s *Store) Worlds(id uuid.UUID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.seen[id]))
	for w := range s.seen[id] {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, worlds := range s.seen {
		n += len(worlds)
	}
	return n
}

// Pending returns the number of records not yet handed to the backend.
func (s *Store) Pending() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.pending)
}

// Run writes queued records and flushes the backend every autosave interval
// until ctx is cancelled, then writes whatever is left within FinalSaveTimeout.
// Records that miss the deadline stay queued for Close.
func (s *Store) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.autosave > 0 {
		ticker := time.NewTicker(s.autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.finalTimeout)
			s.drain(final)
			if err := s.flush(final); err != nil {
				slog.Error("final history save", "error", err)
			}
			cancel()
			return nil
		case <-s.wake:
			s.drain(ctx)
		case <-tick:
			s.drain(ctx)
			if err := s.flush(ctx); err != nil {
				slog.Warn("history autosave failed", "error", err)
			}
		}
	}
}

// drain inserts queued records. On failure the rest stay queued for the next round.
func (s *Store) drain(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.qmu.Lock()
	batch := s.pending
	s.pending = nil
	s.qmu.Unlock()

	for i, r := range batch {
		if err := s.backend.Insert(ctx, r); err != nil {
			slog.Warn("saving teleport record",
				"player", r.PlayerID.String(),
				"world", r.World,
				"error", err)

			s.qmu.Lock()
			s.pending = append(batch[i:len(batch):len(batch)], s.pending...)
			s.qmu.Unlock()
			return
		}
	}
}

func (s *Store) flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.backend.Flush(ctx)
}

// Close writes queued records, flushes and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.drain(ctx)
	if n := s.Pending(); n > 0 {
		slog.Error("teleport records lost on close", "count", n)
	}
	if err := s.flush(ctx); err != nil {
		return errors.Join(
			fmt.Errorf("flushing teleport history: %w", err),
			s.backend.Close(),
		)
	}
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("closing teleport history: %w", err)
	}
	return nil
}
