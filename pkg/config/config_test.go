package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	w, h := cfg.GridSize()
	assert.Equal(t, 20, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.Equal(t, store.DefaultKey, cfg.Store.Key)

	ec := cfg.EngineConfig()
	assert.Equal(t, 20, ec.Width)
	assert.Equal(t, 0, ec.StaggerTicks)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[grid]
width = 12
height = 8

[engine]
tick_ms = 40
stagger_ticks = 3

[store]
backend = "redis"
redis_addr = "cache:6379"
redis_db = 2

[restore]
aggregate = true

[prices.overrides.bitcoin]
usd = 64000
usd_24h_change = -1.5
`)
	require.NoError(t, err)

	w, h := cfg.GridSize()
	assert.Equal(t, 12, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, 40*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 3, cfg.EngineConfig().StaggerTicks)
	assert.True(t, cfg.Restore.Aggregate)
	assert.Equal(t, DefaultDrainTicks, cfg.Engine.DrainTicks, "unset keys keep defaults")

	opts, err := cfg.StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, store.BackendRedis, opts.Backend)
	assert.Equal(t, "cache:6379", opts.RedisAddr)
	assert.Equal(t, 2, opts.RedisDB)

	quotes, err := cfg.Quotes()
	require.NoError(t, err)
	assert.Equal(t, 64000.0, quotes["bitcoin"].USD)
	assert.Equal(t, -1.5, quotes["bitcoin"].Change24h)
	assert.Equal(t, 2500.0, quotes["ethereum"].USD, "fallback fills the rest")
}

func TestParseViewport(t *testing.T) {
	cfg, err := Parse(`
[grid]
viewport_width = 300
viewport_height = 310
cell_size = 20
`)
	require.NoError(t, err)
	w, h := cfg.GridSize()
	assert.Equal(t, 15, w)
	assert.Equal(t, 15, h)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", `[grid`},
		{"unknown key", "[grid]\ncolumns = 3"},
		{"zero tick", "[engine]\ntick_ms = 0"},
		{"negative stagger", "[engine]\nstagger_ticks = -1"},
		{"zero drain", "[engine]\ndrain_ticks = 0"},
		{"bad backend", "[store]\nbackend = \"etcd\""},
		{"empty key", "[store]\nkey = \"\""},
		{"empty grid", "[grid]\ncell_size = 0"},
		{"bad override id", "[prices.overrides.\"Bit Coin\"]\nusd = 1"},
		{"negative override", "[prices.overrides.bitcoin]\nusd = -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.toml")

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, false)
	assert.Error(t, err)

	cfg, err = Load("", false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \":9999\"\n"), 0o644))
	cfg, err = Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)

	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o644))
	_, err = Load(path, true)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Grid.Width, cfg.Grid.Height = 10, 10
	cfg.Prices.Overrides = map[string]PriceOverride{"dogecoin": {USD: 0.1, Change24h: 4}}

	require.NoError(t, cfg.WriteFile(path))
	got, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestQuotesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"solana":{"usd":150,"usd_24h_change":7}}`), 0o644))

	cfg := Default()
	cfg.Prices.File = path
	quotes, err := cfg.Quotes()
	require.NoError(t, err)
	assert.Equal(t, 150.0, quotes["solana"].USD)

	cfg.Prices.File = filepath.Join(t.TempDir(), "nope.json")
	_, err = cfg.Quotes()
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cfg", AppName), dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cfg", AppName, "config.toml"), path)

	data, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/data", AppName), data)

	opts, err := Default().StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, data, opts.Path)
}
