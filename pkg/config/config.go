// Package config loads coinstack settings from a TOML file.
//
// Every setting has a default, so a missing file is not an error for the
// default location. A minimal file looks like:
//
//	[grid]
//	width = 24
//	height = 32
//
//	[engine]
//	tick_ms = 80
//
//	[store]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[prices.overrides.bitcoin]
//	usd = 64000
//	usd_24h_change = 1.2
//
// Unknown keys are rejected so typos surface instead of silently falling back
// to defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/grid"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/store"
)

// AppName names the config and data directories.
const AppName = "coinstack"

// Default values.
const (
	DefaultViewportWidth  = 600
	DefaultViewportHeight = 900
	DefaultCellSize       = 30
	DefaultTickMS         = 100
	DefaultDrainTicks     = 10_000
	DefaultServerAddr     = "127.0.0.1:8080"
)

// Config is the full settings tree.
type Config struct {
	Grid    GridConfig    `toml:"grid"`
	Engine  EngineConfig  `toml:"engine"`
	Store   StoreConfig   `toml:"store"`
	Restore RestoreConfig `toml:"restore"`
	Server  ServerConfig  `toml:"server"`
	Prices  PricesConfig  `toml:"prices"`
}

// GridConfig sizes the grid either directly or from a viewport in pixels.
// Width and Height win when both are set.
type GridConfig struct {
	Width          int `toml:"width,omitempty"`
	Height         int `toml:"height,omitempty"`
	ViewportWidth  int `toml:"viewport_width"`
	ViewportHeight int `toml:"viewport_height"`
	CellSize       int `toml:"cell_size"`
}

// EngineConfig paces the simulation.
type EngineConfig struct {
	TickMS       int `toml:"tick_ms"`
	StaggerTicks int `toml:"stagger_ticks"`
	DrainTicks   int `toml:"drain_ticks"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
	Key     string `toml:"key"`

	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`

	MongoURI        string `toml:"mongo_uri,omitempty"`
	MongoDatabase   string `toml:"mongo_database,omitempty"`
	MongoCollection string `toml:"mongo_collection,omitempty"`
}

// RestoreConfig controls how a saved portfolio is replayed.
type RestoreConfig struct {
	// Aggregate merges saved records of the same asset into one Add.
	Aggregate bool `toml:"aggregate"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PricesConfig supplies market data without a fetcher.
type PricesConfig struct {
	// File is a CoinGecko-style JSON document loaded on start.
	File string `toml:"file,omitempty"`

	// Overrides pin individual quotes on top of the fallback table and File.
	Overrides map[string]PriceOverride `toml:"overrides,omitempty"`
}

// PriceOverride is one pinned quote.
type PriceOverride struct {
	USD       float64 `toml:"usd"`
	Change24h float64 `toml:"usd_24h_change"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Grid: GridConfig{
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
			CellSize:       DefaultCellSize,
		},
		Engine: EngineConfig{
			TickMS:     DefaultTickMS,
			DrainTicks: DefaultDrainTicks,
		},
		Store: StoreConfig{
			Backend: store.BackendFile,
			Key:     store.DefaultKey,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads path on top of the defaults. A missing file yields the defaults
// when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && allowMissing {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text on top of the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %s", undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes cfg to path, creating parent directories.
func (c Config) WriteFile(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// =============================================================================
// Validation
// =============================================================================

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	w, h := c.GridSize()
	if w <= 0 || h <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "grid must be at least 1x1, got %dx%d", w, h)
	}
	if c.Grid.Width < 0 || c.Grid.Height < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "grid width and height must not be negative")
	}
	if c.Engine.TickMS <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "engine.tick_ms must be positive")
	}
	if c.Engine.StaggerTicks < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "engine.stagger_ticks must not be negative")
	}
	if c.Engine.DrainTicks <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "engine.drain_ticks must be positive")
	}
	switch c.Store.Backend {
	case store.BackendFile, store.BackendRedis, store.BackendMongo, store.BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "store.key must not be empty")
	}
	for id, q := range c.Prices.Overrides {
		if err := errors.ValidateAssetID(id); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "prices.overrides")
		}
		if q.USD < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "prices.overrides.%s: negative price", id)
		}
	}
	return nil
}

// =============================================================================
// Derived settings
// =============================================================================

// GridSize returns the grid dimensions in cells.
func (c Config) GridSize() (width, height int) {
	if c.Grid.Width > 0 && c.Grid.Height > 0 {
		return c.Grid.Width, c.Grid.Height
	}
	return grid.Dimensions(c.Grid.ViewportWidth, c.Grid.ViewportHeight, c.Grid.CellSize)
}

// EngineConfig returns the engine settings.
func (c Config) EngineConfig() engine.Config {
	w, h := c.GridSize()
	return engine.Config{Width: w, Height: h, StaggerTicks: c.Engine.StaggerTicks}
}

// TickInterval returns the simulation tick period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.TickMS) * time.Millisecond
}

// StoreOptions returns the backend options. An empty file path resolves to
// the data directory.
func (c Config) StoreOptions() (store.Options, error) {
	opts := store.Options{
		Backend:         c.Store.Backend,
		Path:            c.Store.Path,
		RedisAddr:       c.Store.RedisAddr,
		RedisPassword:   c.Store.RedisPassword,
		RedisDB:         c.Store.RedisDB,
		MongoURI:        c.Store.MongoURI,
		MongoDatabase:   c.Store.MongoDatabase,
		MongoCollection: c.Store.MongoCollection,
	}
	if opts.Backend == store.BackendFile && opts.Path == "" {
		dir, err := DataDir()
		if err != nil {
			return store.Options{}, fmt.Errorf("resolve data dir: %w", err)
		}
		opts.Path = dir
	}
	return opts, nil
}

// Quotes assembles the price table: fallback, then File, then Overrides.
func (c Config) Quotes() (map[string]prices.Quote, error) {
	quotes := prices.Fallback()
	if c.Prices.File != "" {
		loaded, err := prices.LoadFile(c.Prices.File)
		if err != nil {
			return nil, err
		}
		for id, q := range loaded {
			quotes[id] = q
		}
	}
	for id, q := range c.Prices.Overrides {
		quotes[id] = prices.Quote{USD: q.USD, Change24h: q.Change24h}
	}
	return quotes, nil
}

// =============================================================================
// Paths
// =============================================================================

// ConfigDir returns the config directory using XDG standard (~/.config/coinstack/).
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DataDir returns the data directory using XDG standard (~/.local/share/coinstack/).
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
