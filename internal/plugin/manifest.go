package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional manifest inside a directory plugin.
const ManifestFile = "plugin.yaml"

// DefaultMain is the entry script of a directory plugin.
const DefaultMain = "init.lua"

// Manifest describes a plugin.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	// Main is the entry script, relative to the plugin directory.
	Main string `yaml:"main"`

	// Priority is the default priority for the plugin's registrations.
	Priority *int `yaml:"priority"`

	dir string
}

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest reads and validates plugin.yaml from dir. Name defaults to
// the directory name.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	m.dir = dir
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// newMinimalManifest describes a plugin with no plugin.yaml.
func newMinimalManifest(name, dir, main string) *Manifest {
	m := &Manifest{Name: name, Main: main, dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is usable.
func (m *Manifest) Validate() error {
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: name %q must be lowercase alphanumeric with - or _", ErrInvalidManifest, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: version %q is not semver", ErrInvalidManifest, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: main %q must be a .lua file", ErrInvalidManifest, m.Main)
	}
	if filepath.IsAbs(m.Main) || !filepath.IsLocal(m.Main) {
		return fmt.Errorf("%w: main %q must stay inside the plugin directory", ErrInvalidManifest, m.Main)
	}
	if m.Priority != nil && *m.Priority < 0 {
		return fmt.Errorf("%w: priority %d is negative", ErrInvalidManifest, *m.Priority)
	}
	return nil
}

// Dir returns the plugin directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// MainPath returns the full path to the entry script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.dir, m.Main)
}

// String returns "name vX.Y.Z".
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
