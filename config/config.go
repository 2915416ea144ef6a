// Package config loads tmlex settings from a .tmlex.yaml or .tmlex.toml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// BaseName is the file name, without extension, Discover looks for.
const BaseName = ".tmlex"

var extensions = []string{".yaml", ".yml", ".toml"}

type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

type Config struct {
	// Library is the directory include names without a slash resolve
	// against. Relative paths are relative to the config file.
	Library string `yaml:"library" toml:"library"`
	// Autoload names a library merged into every document.
	Autoload string `yaml:"autoload" toml:"autoload"`
	// Buffer is reserved for a library cache file.
	Buffer    string `yaml:"buffer" toml:"buffer"`
	Verbosity int    `yaml:"verbosity" toml:"verbosity"`

	path string
}

func Default() *Config {
	return &Config{Library: "lib"}
}

// Path returns the file the configuration was read from, or "" for the
// defaults.
func (c *Config) Path() string {
	return c.path
}

// Load reads the file at path. The format is chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path
	if cfg.Library != "" && !filepath.IsAbs(cfg.Library) {
		cfg.Library = filepath.Join(filepath.Dir(path), cfg.Library)
	}
	if cfg.Buffer != "" && !filepath.IsAbs(cfg.Buffer) {
		cfg.Buffer = filepath.Join(filepath.Dir(path), cfg.Buffer)
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %s", format)
	}
	if cfg.Verbosity < 0 {
		return nil, fmt.Errorf("verbosity must not be negative, got %d", cfg.Verbosity)
	}
	return cfg, nil
}

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("config %s: unknown extension", path)
}

// Discover looks for a .tmlex config file in dir and its parents and loads
// the first one found. Without a config file it returns the defaults, with
// Library relative to dir.
func Discover(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("discover config: %w", err)
	}
	for current := abs; ; {
		for _, ext := range extensions {
			candidate := filepath.Join(current, BaseName+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return Load(candidate)
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	cfg := Default()
	cfg.Library = filepath.Join(abs, cfg.Library)
	return cfg, nil
}
