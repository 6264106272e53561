// Package config loads the citesync configuration file.
//
// The loaded Config is returned to the caller and handed to the session
// explicitly; there is no ambient global configuration.
package config

import (
	"fmt"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/persist"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the citesync configuration.
type Config struct {
	// Store selects the persistence backend.
	Store StoreConfig `yaml:"store"`

	// Engine selects the formatting engine.
	Engine EngineConfig `yaml:"engine"`

	// Style is the default citation style name.
	Style string `yaml:"style"`
	// Locale is the default BCP-47 locale.
	Locale string `yaml:"locale"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // sqlite | badger | memory
	Path    string `yaml:"path"`
}

// EngineConfig selects the formatting engine.
type EngineConfig struct {
	// URL of a remote engine (ws:// or wss://). Empty selects the
	// embedded formatter.
	URL string `yaml:"url"`
	// StylesDir holds extra CUE style descriptors for the embedded
	// formatter.
	StylesDir string `yaml:"styles_dir"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store:  StoreConfig{Backend: BackendSQLite, Path: "citesync.db"},
		Style:  persist.FallbackStyle,
		Locale: persist.FallbackLocale,
	}
}

// Load reads and validates the configuration at path. A missing file
// yields Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend and locale values.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend != BackendMemory && c.Store.Path == "" {
		return fmt.Errorf("store path is required for backend %q", c.Store.Backend)
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
		}
	}
	return nil
}

// OpenStore opens the configured persistence backend.
func (c Config) OpenStore() (persist.Store, error) {
	switch c.Store.Backend {
	case BackendSQLite:
		return persist.OpenSQLite(c.Store.Path)
	case BackendBadger:
		return persist.OpenBadger(persist.DefaultBadgerConfig(c.Store.Path))
	case BackendMemory:
		return persist.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}
