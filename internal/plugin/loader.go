package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers plugins on the filesystem.
type Loader struct {
	// Search paths, checked in order. The first plugin with a name wins.
	paths []string
}

// Info describes a discovered plugin.
type Info struct {
	Name     string
	Manifest *Manifest

	// Err is set when the plugin was found but cannot be loaded.
	Err error
}

// NewLoader creates a loader over the given search paths.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths}
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return append([]string(nil), l.paths...)
}

// Discover finds every plugin in the search paths, sorted by name.
// Missing search paths are skipped.
func (l *Loader) Discover() ([]*Info, error) {
	found := make(map[string]*Info)

	for _, base := range l.paths {
		entries, err := os.ReadDir(base)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read plugin dir %s: %w", base, err)
		}

		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			info := inspect(base, entry)
			if info == nil {
				continue
			}
			if _, exists := found[info.Name]; !exists {
				found[info.Name] = info
			}
		}
	}

	plugins := make([]*Info, 0, len(found))
	for _, info := range found {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})
	return plugins, nil
}

// Find returns the named plugin.
func (l *Loader) Find(name string) (*Info, error) {
	plugins, err := l.Discover()
	if err != nil {
		return nil, err
	}
	for _, info := range plugins {
		if info.Name == name {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// inspect turns a directory entry into plugin info, or nil when the entry
// is not a plugin at all.
func inspect(base string, entry os.DirEntry) *Info {
	if !entry.IsDir() {
		if filepath.Ext(entry.Name()) != ".lua" {
			return nil
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		m := newMinimalManifest(name, base, entry.Name())
		return &Info{Name: name, Manifest: m, Err: m.Validate()}
	}

	dir := filepath.Join(base, entry.Name())
	info := &Info{Name: entry.Name()}

	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		m, err := LoadManifest(dir)
		if err != nil {
			info.Err = err
			return info
		}
		info.Name = m.Name
		info.Manifest = m
	} else {
		info.Manifest = newMinimalManifest(entry.Name(), dir, DefaultMain)
		if err := info.Manifest.Validate(); err != nil {
			info.Err = err
			return info
		}
	}

	if _, err := os.Stat(info.Manifest.MainPath()); err != nil {
		info.Err = fmt.Errorf("%w: %s", ErrNoEntryPoint, info.Manifest.MainPath())
	}
	return info
}
