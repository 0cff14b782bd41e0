package config

import (
	"errors"
	"fmt"

	"github.com/udisondev/rtp/internal/world"
)

// Message keys.
const (
	MsgCountdownStart     = "countdown-start"
	MsgCountdownRemaining = "countdown-remaining"
	MsgTeleporting        = "teleporting"
	MsgAlreadyTeleported  = "already-teleported"
	MsgTeleportFailed     = "teleport-failed"
)

// Plugin holds the teleport rules. Keys keep the plugin's hyphenated names.
type Plugin struct {
	TargetWorld      string       `yaml:"target-world"`
	Radius           world.Region `yaml:"radius"`
	CountdownSeconds int          `yaml:"countdown-seconds"`

	// MaxSearchAttempts bounds the number of sampled columns per search.
	// 0 retries until a location is found.
	MaxSearchAttempts int `yaml:"max-search-attempts"`

	Messages Messages `yaml:"messages"`
}

// Messages are chat templates. Each supports {seconds} and '&' colour codes.
// An empty template disables the message.
type Messages struct {
	CountdownStart     string `yaml:"countdown-start"`
	CountdownRemaining string `yaml:"countdown-remaining"`
	Teleporting        string `yaml:"teleporting"`
	AlreadyTeleported  string `yaml:"already-teleported"`
	TeleportFailed     string `yaml:"teleport-failed"`
}

// Get returns the template for key, or "" for unknown keys.
func (m Messages) Get(key string) string {
	switch key {
	case MsgCountdownStart:
		return m.CountdownStart
	case MsgCountdownRemaining:
		return m.CountdownRemaining
	case MsgTeleporting:
		return m.Teleporting
	case MsgAlreadyTeleported:
		return m.AlreadyTeleported
	case MsgTeleportFailed:
		return m.TeleportFailed
	}
	return ""
}

// DefaultPlugin returns Plugin config with the stock rules:
// target "world", ±1000 blocks around spawn, 3 second countdown.
func DefaultPlugin() Plugin {
	return Plugin{
		TargetWorld: "world",
		Radius: world.Region{
			MinX: -1000,
			MaxX: 1000,
			MinZ: -1000,
			MaxZ: 1000,
		},
		CountdownSeconds:  3,
		MaxSearchAttempts: 10000,
		Messages: Messages{
			CountdownStart:     "&eYou will be teleported to a random location in &6{seconds} &eseconds...",
			CountdownRemaining: "&eTeleporting in &6{seconds}&e...",
			Teleporting:        "&aTeleporting...",
			AlreadyTeleported:  "&7You have already been teleported in this world.",
			TeleportFailed:     "&cCould not find a safe location. Please try again later.",
		},
	}
}

// Validate checks the rules are usable.
func (p Plugin) Validate() error {
	if p.TargetWorld == "" {
		return errors.New("target-world is empty")
	}
	if err := p.Radius.Validate(); err != nil {
		return fmt.Errorf("radius: %w", err)
	}
	if p.CountdownSeconds < 1 {
		return fmt.Errorf("countdown-seconds must be at least 1, got %d", p.CountdownSeconds)
	}
	if p.MaxSearchAttempts < 0 {
		return fmt.Errorf("max-search-attempts must not be negative, got %d", p.MaxSearchAttempts)
	}
	return nil
}

// LoadPlugin loads plugin config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadPlugin(path string) (Plugin, error) {
	cfg := DefaultPlugin()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}
