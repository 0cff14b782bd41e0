package terrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/world"
)

// World is a generated block world with on-demand chunk residency.
//
// Reads for columns whose chunk is not resident are answered straight from the
// generator, so the location search never forces chunks into memory. LoadChunk
// makes a chunk resident (from disk if saved earlier, otherwise generated);
// concurrent loads of the same chunk share one result.
type World struct {
	name  string
	gen   Generator
	dir   string // empty = memory only
	spawn world.Coordinate

	mu     sync.RWMutex
	chunks map[world.ChunkPos]*Chunk
	dirty  map[world.ChunkPos]struct{}

	loads singleflight.Group
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

var _ world.World = (*World)(nil)

// New creates a world from config. Chunk files live in dir/<name>; an empty dir
// keeps everything in memory.
func New(cfg config.WorldConfig, dir string) (*World, error) {
	if cfg.MinHeight >= cfg.MaxHeight {
		return nil, fmt.Errorf("world %q: min height %d must be below max height %d", cfg.Name, cfg.MinHeight, cfg.MaxHeight)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating chunk encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating chunk decoder: %w", err)
	}

	w := &World{
		name:   cfg.Name,
		gen:    NewGenerator(cfg),
		chunks: make(map[world.ChunkPos]*Chunk),
		dirty:  make(map[world.ChunkPos]struct{}),
		enc:    enc,
		dec:    dec,
	}
	if dir != "" {
		w.dir = filepath.Join(dir, cfg.Name)
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			w.Close()
			return nil, fmt.Errorf("creating world dir %s: %w", w.dir, err)
		}
	}

	col := w.gen.Column(cfg.SpawnX, cfg.SpawnZ)
	w.spawn = world.Coordinate{X: cfg.SpawnX, Y: min(col.Highest()+1, cfg.MaxHeight-1), Z: cfg.SpawnZ}

	return w, nil
}

func (w *World) Name() string { return w.name }

func (w *World) Spawn() world.Coordinate { return w.spawn }

func (w *World) MinHeight() int { return w.gen.MinY }

func (w *World) MaxHeight() int { return w.gen.MaxY }

// Generator returns the world's terrain generator.
func (w *World) Generator() *Generator { return &w.gen }

func (w *World) resident(pos world.ChunkPos) *Chunk {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks[pos]
}

func (w *World) HighestBlockYAt(x, z int) int {
	c := world.Coordinate{X: x, Z: z}
	if ch := w.resident(c.Chunk()); ch != nil {
		return ch.Highest(x&(world.ChunkSize-1), z&(world.ChunkSize-1))
	}
	return min(w.gen.Column(x, z).Highest(), w.gen.MaxY-1)
}

func (w *World) BlockAt(x, y, z int) world.Material {
	c := world.Coordinate{X: x, Y: y, Z: z}
	if ch := w.resident(c.Chunk()); ch != nil {
		return ch.Block(x&(world.ChunkSize-1), y, z&(world.ChunkSize-1))
	}
	return w.gen.BlockAt(x, y, z)
}

// IsChunkLoaded reports whether pos is resident.
func (w *World) IsChunkLoaded(pos world.ChunkPos) bool {
	return w.resident(pos) != nil
}

// LoadedChunks returns the number of resident chunks.
func (w *World) LoadedChunks() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// LoadChunk makes pos resident, reading it from disk when a saved copy exists.
func (w *World) LoadChunk(ctx context.Context, pos world.ChunkPos) error {
	if w.resident(pos) != nil {
		return nil
	}

	ch := w.loads.DoChan(pos.String(), func() (any, error) {
		if ch := w.resident(pos); ch != nil {
			return ch, nil
		}

		chunk, fromDisk, err := w.readChunk(pos)
		if err != nil {
			return nil, err
		}

		w.mu.Lock()
		w.chunks[pos] = chunk
		if !fromDisk && w.dir != "" {
			w.dirty[pos] = struct{}{}
		}
		w.mu.Unlock()

		slog.Debug("chunk loaded", "world", w.name, "chunk", pos.String(), "from_disk", fromDisk)
		return chunk, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("loading chunk %s in %s: %w", pos, w.name, res.Err)
		}
		return nil
	}
}

func (w *World) chunkPath(pos world.ChunkPos) string {
	return filepath.Join(w.dir, fmt.Sprintf("c.%d.%d.zst", pos.X, pos.Z))
}

func (w *World) readChunk(pos world.ChunkPos) (*Chunk, bool, error) {
	if w.dir == "" {
		return w.gen.Generate(pos), false, nil
	}

	raw, err := os.ReadFile(w.chunkPath(pos))
	if errors.Is(err, os.ErrNotExist) {
		return w.gen.Generate(pos), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading chunk file: %w", err)
	}

	data, err := w.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing chunk: %w", err)
	}
	ch, err := decodeChunk(pos, data, w.gen.MinY, w.gen.MaxY-w.gen.MinY)
	if err != nil {
		return nil, false, err
	}
	return ch, true, nil
}

// Save writes every chunk generated since the last save. No-op for in-memory worlds.
func (w *World) Save() error {
	if w.dir == "" {
		return nil
	}

	w.mu.Lock()
	pending := make([]*Chunk, 0, len(w.dirty))
	for pos := range w.dirty {
		pending = append(pending, w.chunks[pos])
	}
	w.mu.Unlock()

	var errs []error
	saved := 0
	for _, ch := range pending {
		if err := w.writeChunk(ch); err != nil {
			errs = append(errs, err)
			continue
		}
		w.mu.Lock()
		delete(w.dirty, ch.pos)
		w.mu.Unlock()
		saved++
	}

	if saved > 0 {
		slog.Info("world saved", "world", w.name, "chunks", saved)
	}
	return errors.Join(errs...)
}

func (w *World) writeChunk(ch *Chunk) error {
	data, err := ch.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding chunk %s: %w", ch.pos, err)
	}
	compressed := w.enc.EncodeAll(data, nil)

	path := w.chunkPath(ch.pos)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("writing chunk %s: %w", ch.pos, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing chunk %s: %w", ch.pos, err)
	}
	return nil
}

// Close releases the codecs. It does not save.
func (w *World) Close() {
	w.enc.Close()
	w.dec.Close()
}
