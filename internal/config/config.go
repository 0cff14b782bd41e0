package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// History backends.
const (
	BackendYAML     = "yaml"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Server holds all configuration for the host process (rtpserver).
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Execution contexts
	TickInterval time.Duration `yaml:"tick_interval"` // primary loop tick (default: 50ms)
	Workers      int           `yaml:"workers"`       // background pool size (default: 4)

	// Plugin config file (target world, radius, messages)
	PluginConfig string `yaml:"plugin_config"`

	// Worlds
	DefaultWorld string        `yaml:"default_world"` // world new connections join
	TerrainDir   string        `yaml:"terrain_dir"`   // chunk files; empty = in-memory only
	Worlds       []WorldConfig `yaml:"worlds"`

	History HistoryConfig `yaml:"history"`
}

// WorldConfig describes one generated world.
type WorldConfig struct {
	Name         string `yaml:"name"`
	Seed         int64  `yaml:"seed"`
	MinHeight    int    `yaml:"min_height"`
	MaxHeight    int    `yaml:"max_height"`
	SeaLevel     int    `yaml:"sea_level"`
	SpawnX       int    `yaml:"spawn_x"`
	SpawnZ       int    `yaml:"spawn_z"`
	BorderRadius int    `yaml:"border_radius"` // 0 = unbounded
}

// HistoryConfig selects where teleport history is stored.
type HistoryConfig struct {
	Backend          string         `yaml:"backend"` // yaml, sqlite, postgres
	Path             string         `yaml:"path"`    // yaml file or sqlite database
	AutosaveInterval time.Duration  `yaml:"autosave_interval"`
	Database         DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultWorldConfig returns an overworld-like world with the given name.
func DefaultWorldConfig(name string) WorldConfig {
	return WorldConfig{
		Name:         name,
		Seed:         1,
		MinHeight:    -64,
		MaxHeight:    320,
		SeaLevel:     62,
		BorderRadius: 29999984,
	}
}

// UnmarshalYAML fills fields missing from the document with DefaultWorldConfig values.
func (w *WorldConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain WorldConfig
	p := plain(DefaultWorldConfig(""))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*w = WorldConfig(p)
	return nil
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		BindAddress:  "0.0.0.0",
		Port:         25580,
		LogLevel:     "info",
		TickInterval: 50 * time.Millisecond,
		Workers:      4,
		PluginConfig: "config/rtp.yaml",
		DefaultWorld: "lobby",
		TerrainDir:   "data/worlds",
		Worlds: []WorldConfig{
			DefaultWorldConfig("lobby"),
			DefaultWorldConfig("world"),
		},
		History: HistoryConfig{
			Backend:          BackendYAML,
			Path:             "data/players.yml",
			AutosaveInterval: 5 * time.Minute,
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "rtp",
				Password: "rtp",
				DBName:   "rtp",
				SSLMode:  "disable",
			},
		},
	}
}

// Validate checks cross-field constraints.
func (s Server) Validate() error {
	if len(s.Worlds) == 0 {
		return errors.New("no worlds configured")
	}
	names := make(map[string]struct{}, len(s.Worlds))
	for _, w := range s.Worlds {
		if w.Name == "" {
			return errors.New("world with empty name")
		}
		if _, dup := names[w.Name]; dup {
			return fmt.Errorf("duplicate world %q", w.Name)
		}
		names[w.Name] = struct{}{}
		if w.MinHeight >= w.MaxHeight {
			return fmt.Errorf("world %q: min_height %d must be below max_height %d", w.Name, w.MinHeight, w.MaxHeight)
		}
	}
	if _, ok := names[s.DefaultWorld]; !ok {
		return fmt.Errorf("default_world %q is not configured", s.DefaultWorld)
	}
	switch s.History.Backend {
	case BackendYAML, BackendSQLite:
		if s.History.Path == "" {
			return fmt.Errorf("history backend %s requires path", s.History.Backend)
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown history backend %q", s.History.Backend)
	}
	return nil
}

// World returns the configuration of the named world.
func (s Server) World(name string) (WorldConfig, bool) {
	for _, w := range s.Worlds {
		if w.Name == name {
			return w, true
		}
	}
	return WorldConfig{}, false
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
