package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type yamlDoc struct {
	Players map[string]yamlPlayer `yaml:"players"`
}

type yamlPlayer struct {
	Worlds []string `yaml:"worlds"`
}

// YAMLFile stores history in a human-readable file:
//
//	players:
//	  <uuid>:
//	    worlds: [world]
//
// The whole file is rewritten on every new record.
type YAMLFile struct {
	path string

	mu      sync.Mutex
	players map[string][]string
	dirty   bool
}

var _ Backend = (*YAMLFile)(nil)

// OpenYAML opens path, creating an empty history file if it does not exist.
func OpenYAML(path string) (*YAMLFile, error) {
	f := &YAMLFile{path: path, players: make(map[string][]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := f.save(); err != nil {
			return nil, err
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("reading history file %s: %w", path, err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing history file %s: %w", path, err)
	}
	for id, p := range doc.Players {
		f.players[id] = p.Worlds
	}
	return f, nil
}

func (f *YAMLFile) Load(_ context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var recs []Record
	for key, worlds := range f.players {
		id, err := uuid.Parse(key)
		if err != nil {
			slog.Warn("skipping history entry with bad player id", "file", f.path, "id", key)
			continue
		}
		for _, w := range worlds {
			recs = append(recs, Record{PlayerID: id, World: w})
		}
	}
	return recs, nil
}

func (f *YAMLFile) Insert(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := rec.PlayerID.String()
	if slices.Contains(f.players[key], rec.World) {
		return nil
	}
	f.players[key] = append(f.players[key], rec.World)
	f.dirty = true
	return f.saveLocked()
}

func (f *YAMLFile) Flush(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}
	return f.saveLocked()
}

func (f *YAMLFile) Close() error {
	return f.Flush(context.Background())
}

func (f *YAMLFile) save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked()
}

func (f *YAMLFile) saveLocked() error {
	doc := yamlDoc{Players: make(map[string]yamlPlayer, len(f.players))}
	for id, worlds := range f.players {
		doc.Players[id] = yamlPlayer{Worlds: worlds}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	f.dirty = false
	return nil
}
