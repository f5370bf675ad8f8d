package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
	plua "github.com/dshills/switchboard/internal/plugin/lua"
)

// Event emitted after a plugin is reloaded. The subject is the plugin name.
const (
	ReloadEvent = "reload"
	ObjectType  = "plugin"
)

// Manager owns the plugin hosts.
//
// Lua code never runs while mu is held, so handlers may call back into
// the Manager. All hosts share one Runtime, so Lua runs in one plugin at
// a time.
type Manager struct {
	mu sync.RWMutex

	loader  *Loader
	runtime *Runtime
	hosts   map[string]*Host
	order   []string

	events  *event.Registry
	hooks   *hook.Registry
	logger  zerolog.Logger
	timeout time.Duration
	enabled func(name string) bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCallTimeout bounds each outermost call into a plugin.
func WithCallTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithFilter restricts LoadAll to plugins for which enabled returns true.
func WithFilter(enabled func(name string) bool) ManagerOption {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// NewManager creates a manager that discovers plugins in paths.
func NewManager(events *event.Registry, hooks *hook.Registry, paths []string, opts ...ManagerOption) *Manager {
	m := &Manager{
		loader:  NewLoader(paths...),
		runtime: NewRuntime(),
		hosts:   make(map[string]*Host),
		events:  events,
		hooks:   hooks,
		logger:  zerolog.Nop(),
		timeout: plua.DefaultTimeout,
		enabled: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Paths returns the plugin search paths.
func (m *Manager) Paths() []string {
	return m.loader.Paths()
}

// Discover lists the plugins available on disk.
func (m *Manager) Discover() ([]*Info, error) {
	return m.loader.Discover()
}

// LoadAll loads every enabled plugin that is not loaded yet. A plugin that
// fails does not stop the others; all failures are joined.
func (m *Manager) LoadAll(ctx context.Context) error {
	plugins, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var errs []error
	for _, info := range plugins {
		if !m.enabled(info.Name) {
			m.logger.Debug().Str("plugin", info.Name).Msg("plugin disabled, skipping")
			continue
		}
		if m.Get(info.Name) != nil {
			continue
		}
		if _, err := m.load(ctx, info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load loads a plugin by name.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	if m.Get(name) != nil {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	info, err := m.loader.Find(name)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, info)
}

func (m *Manager) load(ctx context.Context, info *Info) (*Host, error) {
	if info.Err != nil {
		m.logger.Error().Err(info.Err).Str("plugin", info.Name).Msg("plugin is not loadable")
		return nil, &LoadError{Plugin: info.Name, Err: info.Err}
	}

	host := NewHost(info.Manifest, m.runtime, m.events, m.hooks, m.logger, m.timeout)
	if err := host.Load(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.hosts[info.Name]; exists {
		m.mu.Unlock()
		_ = host.Unload(ctx)
		return nil, fmt.Errorf("plugin %q: %w", info.Name, ErrAlreadyLoaded)
	}
	m.hosts[info.Name] = host
	m.order = append(m.order, info.Name)
	m.mu.Unlock()

	return host, nil
}

// Unload unloads a plugin by name.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	host, exists := m.hosts[name]
	if exists {
		delete(m.hosts, name)
		m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}
	return host.Unload(ctx)
}

// Reload unloads the plugin if it is loaded, loads it again from disk and
// emits (reload, plugin) with the plugin name as subject.
func (m *Manager) Reload(ctx context.Context, name string) (*Host, error) {
	if err := m.Unload(ctx, name); err != nil && !errors.Is(err, ErrNotLoaded) {
		return nil, err
	}

	host, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	m.events.Emit(ctx, ReloadEvent, ObjectType, name)
	return host, nil
}

// UnloadAll unloads every plugin in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := slices.Clone(m.order)
	m.mu.RUnlock()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := m.Unload(ctx, names[i]); err != nil && !errors.Is(err, ErrNotLoaded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns a loaded plugin, or nil.
func (m *Manager) Get(name string) *Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hosts[name]
}

// Plugins returns the loaded plugins in load order.
func (m *Manager) Plugins() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make([]*Host, 0, len(m.order))
	for _, name := range m.order {
		hosts = append(hosts, m.hosts[name])
	}
	return hosts
}
