package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/coinstack/pkg/buildinfo"
	"github.com/matzehuels/coinstack/pkg/config"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/observability/metrics"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output; logs go to the logger's writer.
	Out io.Writer

	configPath string

	// metrics is set by serve before the portfolio is restored.
	metrics *metrics.Collector
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Coinstack stacks a crypto portfolio as falling blocks",
		Long: `Coinstack turns crypto holdings into shaped blocks that fall into a grid and
settle, Tetris-style. Bigger holdings get more blocks, the grid can be compacted
on demand, and the portfolio is saved between runs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/coinstack/config.toml)")

	// Portfolio intents
	root.AddCommand(c.addCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.reorganizeCommand())
	root.AddCommand(c.clearCommand())

	// Presentation
	root.AddCommand(c.showCommand())
	root.AddCommand(c.holdingsCommand())
	root.AddCommand(c.blockCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())

	// Housekeeping
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Service Factory
// =============================================================================

// loadConfig reads the --config file, or the default path when the flag is
// unset. A missing default file yields the built-in settings; a missing
// explicit file is an error.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath, false)
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default(), nil
	}
	return config.Load(path, true)
}

// openStore opens the configured backend. Remote backends show a spinner
// while connecting.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}

	remote := opts.Backend == store.BackendRedis || opts.Backend == store.BackendMongo
	var spin *Spinner
	if remote {
		spin = newSpinnerWithContext(ctx, "Connecting to "+opts.Backend+"...")
		spin.Start()
	}
	st, err := store.Open(ctx, opts)
	if spin != nil {
		if err != nil {
			spin.StopWithError("Could not reach " + opts.Backend)
		} else {
			spin.Stop()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	c.Logger.Debug("store opened", "backend", store.Name(st))
	return st, nil
}

// newService builds a service from cfg without restoring anything.
func (c *CLI) newService(cfg config.Config, st store.Store) (*portfolio.Service, error) {
	quotes, err := cfg.Quotes()
	if err != nil {
		return nil, err
	}
	eng := engine.New(cfg.EngineConfig())
	return portfolio.NewService(eng, prices.NewTable(quotes), st, c.Logger, portfolio.Options{
		Key:        cfg.Store.Key,
		Aggregate:  cfg.Restore.Aggregate,
		DrainTicks: cfg.Engine.DrainTicks,
	}), nil
}

// openService loads config, opens the store and restores the saved
// portfolio. The returned function closes the store.
func (c *CLI) openService(ctx context.Context) (*portfolio.Service, config.Config, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	if c.metrics != nil {
		registerHooks(c.Logger, c.metrics)
	} else {
		registerHooks(c.Logger)
	}

	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			c.Logger.Warn("close store", "error", err)
		}
	}

	svc, err := c.newService(cfg, st)
	if err != nil {
		closeStore()
		return nil, config.Config{}, nil, err
	}
	if _, err := svc.Restore(ctx); err != nil {
		if errors.Is(err, errors.ErrCodeCorruptRecord) {
			c.Logger.Warn("saved portfolio is unreadable, starting empty", "error", err)
			return svc, cfg, closeStore, nil
		}
		closeStore()
		return nil, config.Config{}, nil, fmt.Errorf("restore portfolio: %w", err)
	}
	return svc, cfg, closeStore, nil
}

// mutate runs one intent against the saved portfolio: restore, apply, settle
// and save.
func (c *CLI) mutate(ctx context.Context, fn func(*portfolio.Service) error) (*portfolio.Service, error) {
	svc, _, closeStore, err := c.openService(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	if err := fn(svc); err != nil {
		return nil, err
	}
	svc.Drain()
	if _, err := svc.Save(ctx); err != nil {
		return nil, fmt.Errorf("save portfolio: %w", err)
	}
	return svc, nil
}
