package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SWITCHBOARD_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf.Provider for embedded bytes.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load builds the configuration. An empty path loads DefaultPath when it
// exists and skips the file layer otherwise; an explicit path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Built-in defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, &LoadError{Layer: "defaults", Err: err}
	}

	// 2. Config file
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	loaded := ""
	if _, err := os.Stat(path); err == nil {
		parser, err := parserFor(path)
		if err != nil {
			return nil, &LoadError{Layer: "file", Path: path, Err: err}
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, &LoadError{Layer: "file", Path: path, Err: err}
		}
		loaded = path
	} else if explicit {
		return nil, &LoadError{Layer: "file", Path: path, Err: ErrFileNotFound}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, &LoadError{Layer: "env", Err: err}
	}

	// 4. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Path = loaded

	// 5. Post-process
	cfg.Plugins.Dir = resolvePluginDir(cfg.Plugins.Dir, loaded)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// parserFor picks a koanf parser by file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// envKey maps SWITCHBOARD_DISPATCH_DEFAULT_PRIORITY to
// dispatch.default_priority: the first segment is the section, the rest
// is the key.
func envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + key
}

// resolvePluginDir applies the default and makes relative directories
// relative to the config file that named them.
func resolvePluginDir(dir, configPath string) string {
	if dir == "" {
		return DefaultPluginDir()
	}
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, dir[2:])
		}
	}
	if filepath.IsAbs(dir) || configPath == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(configPath), dir)
}
