// Package config loads layered application configuration. Values merge
// in a fixed order: compiled-in defaults first, then config
// directories, then individual files, then explicit overrides. Later
// layers win. JSON and YAML files are supported, and JSON files may
// contain full-line # comments.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

var (
	ErrEmptyPath     = errors.New("config: empty path")
	ErrUnknownFormat = errors.New("config: unknown file format")
	ErrLoadFailed    = errors.New("config: load failed")
)

// Config holds merged configuration. All getters are safe for
// concurrent use, including while a Watch reload is in flight.
type Config struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	defaults  map[string]any
	dirs      []string
	files     []string
	overrides [][2]string
}

// Option adds a source to Load.
type Option func(*Config)

// WithFile adds a config file. Files load after directories, so an
// explicit file wins over anything found in a directory.
func WithFile(path string) Option {
	return func(c *Config) {
		c.files = append(c.files, path)
	}
}

// WithDir adds a directory whose .json/.yaml/.yml files load in
// lexical order. Files with other extensions are skipped.
func WithDir(path string) Option {
	return func(c *Config) {
		c.dirs = append(c.dirs, path)
	}
}

// WithOverride sets a single dotted-path value, e.g.
// WithOverride("server.port", "8080"). The value goes through
// ParseValue, so numbers, booleans, and JSON literals keep their type.
// Overrides apply last.
func WithOverride(path, value string) Option {
	return func(c *Config) {
		c.overrides = append(c.overrides, [2]string{path, value})
	}
}

// Load builds a Config from defaults plus the configured sources.
func Load(defaults map[string]any, opts ...Option) (*Config, error) {
	c := &Config{defaults: defaults}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// reload rebuilds the merged tree from scratch and swaps it in.
func (c *Config) reload() error {
	k := koanf.New(".")
	if c.defaults != nil {
		raw, err := json.Marshal(c.defaults)
		if err != nil {
			return fmt.Errorf("%w: defaults: %w", ErrLoadFailed, err)
		}
		if err := k.Load(rawbytes.Provider(raw), kjson.Parser()); err != nil {
			return fmt.Errorf("%w: defaults: %w", ErrLoadFailed, err)
		}
	}
	for _, dir := range c.dirs {
		if err := loadDir(k, dir); err != nil {
			return err
		}
	}
	for _, file := range c.files {
		if err := loadFile(k, file); err != nil {
			return err
		}
	}
	for _, override := range c.overrides {
		if err := k.Set(override[0], ParseValue(override[1])); err != nil {
			return fmt.Errorf("%w: override %s: %w", ErrLoadFailed, override[0], err)
		}
	}
	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

func loadDir(k *koanf.Koanf, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !knownFormat(entry.Name()) {
			continue
		}
		if err := loadFile(k, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw = stripComments(raw)
		parser = kjson.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err := k.Load(rawbytes.Provider(raw), parser); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}
	return nil
}

func knownFormat(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// stripComments blanks out lines whose first non-space character is #,
// so hand-edited JSON config can carry comments.
func stripComments(raw []byte) []byte {
	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			lines[i] = ""
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// ParseValue interprets a string the way a JSON document would: digits
// become numbers, true/false/null become their typed values, and [ or
// { begin structured values. Anything that does not parse stays a
// plain string.
func ParseValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	switch trimmed[0] {
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '-', '[', '{', '"':
	default:
		if trimmed != "true" && trimmed != "false" && trimmed != "null" {
			return value
		}
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return value
	}
	return parsed
}

// Get returns the raw value at a dotted path, or nil.
func (c *Config) Get(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Get(path)
}

// Exists reports whether a dotted path is present.
func (c *Config) Exists(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Exists(path)
}

func (c *Config) String(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.String(path)
}

func (c *Config) Int(path string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Int(path)
}

func (c *Config) Float64(path string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Float64(path)
}

func (c *Config) Bool(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Bool(path)
}

func (c *Config) Strings(path string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Strings(path)
}

// All returns a copy of the whole merged tree.
func (c *Config) All() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Raw()
}

// Unmarshal decodes the subtree at path into out.
func (c *Config) Unmarshal(path string, out any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Unmarshal(path, out)
}

// Set updates a single dotted-path value in the live tree. The change
// is lost on the next reload unless it was given as an override.
func (c *Config) Set(path, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.k.Set(path, ParseValue(value))
}
