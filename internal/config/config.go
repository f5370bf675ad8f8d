// Package config loads switchboard settings.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. built-in defaults (embedded/defaults.toml)
//  2. the config file, TOML or YAML by extension
//  3. SWITCHBOARD_<SECTION>_<KEY> environment variables
//
// The default config file is $XDG_CONFIG_HOME/switchboard/config.toml.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/switchboard/internal/priority"
)

// AppName names the XDG config directory.
const AppName = "switchboard"

// Config is the complete set of settings.
type Config struct {
	Log      LogConfig      `koanf:"log" toml:"log"`
	Dispatch DispatchConfig `koanf:"dispatch" toml:"dispatch"`
	Hooks    HooksConfig    `koanf:"hooks" toml:"hooks"`
	Plugins  PluginsConfig  `koanf:"plugins" toml:"plugins"`

	// Path is the config file that was loaded, empty for defaults only.
	Path string `koanf:"-" toml:"-"`
}

// LogConfig controls logging.
type LogConfig struct {
	Verbosity int    `koanf:"verbosity" toml:"verbosity"`
	File      string `koanf:"file" toml:"file"`
}

// DispatchConfig controls both registries.
type DispatchConfig struct {
	DefaultPriority int    `koanf:"default_priority" toml:"default_priority"`
	Collision       string `koanf:"collision" toml:"collision"`
}

// HooksConfig controls hook dispatch.
type HooksConfig struct {
	// NilAbstains treats a nil replacement as "no opinion".
	NilAbstains bool `koanf:"nil_abstains" toml:"nil_abstains"`
}

// PluginsConfig controls plugin discovery and execution.
type PluginsConfig struct {
	Dir           string   `koanf:"dir" toml:"dir"`
	Enabled       []string `koanf:"enabled" toml:"enabled"`
	CallTimeoutMS int      `koanf:"call_timeout_ms" toml:"call_timeout_ms"`
	Watch         bool     `koanf:"watch" toml:"watch"`
	DebounceMS    int      `koanf:"debounce_ms" toml:"debounce_ms"`
}

// Policy returns the parsed collision policy.
func (c *Config) Policy() priority.Policy {
	p, _ := priority.ParsePolicy(c.Dispatch.Collision)
	return p
}

// Validate checks settings that cannot be expressed by types alone.
func (c *Config) Validate() error {
	if _, err := priority.ParsePolicy(c.Dispatch.Collision); err != nil {
		return fmt.Errorf("%w: dispatch.collision: %v", ErrInvalidConfig, err)
	}
	if c.Dispatch.DefaultPriority < 0 {
		return fmt.Errorf("%w: dispatch.default_priority must not be negative, got %d",
			ErrInvalidConfig, c.Dispatch.DefaultPriority)
	}
	if c.Plugins.CallTimeoutMS <= 0 {
		return fmt.Errorf("%w: plugins.call_timeout_ms must be positive, got %d",
			ErrInvalidConfig, c.Plugins.CallTimeoutMS)
	}
	if c.Plugins.DebounceMS < 0 {
		return fmt.Errorf("%w: plugins.debounce_ms must not be negative, got %d",
			ErrInvalidConfig, c.Plugins.DebounceMS)
	}
	return nil
}

// PluginEnabled reports whether the named plugin should load. An empty
// enabled list enables everything discovered.
func (c *Config) PluginEnabled(name string) bool {
	if len(c.Plugins.Enabled) == 0 {
		return true
	}
	for _, n := range c.Plugins.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

// TOML renders the effective configuration.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}

// CallTimeout bounds a single call into a plugin's Lua state.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Plugins.CallTimeoutMS) * time.Millisecond
}

// Debounce is the quiet period before a changed plugin is reloaded.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Plugins.DebounceMS) * time.Millisecond
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// DefaultPluginDir returns the default plugin directory.
func DefaultPluginDir() string {
	return filepath.Join(xdg.ConfigHome, AppName, "plugins")
}
