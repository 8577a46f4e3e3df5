// Package cli implements the coinstack command-line interface.
//
// The CLI keeps a portfolio in the configured store and applies one intent
// per invocation: the saved portfolio is restored, the intent is applied,
// blocks are settled and the result is saved again. The long-running
// commands (watch, serve) keep the portfolio in memory and save on exit.
//
// # Commands
//
// The main commands are:
//   - add, remove, reorganize, clear: change the portfolio
//   - show, holdings, block, catalog: inspect it
//   - watch: animate descents in the terminal
//   - serve: run the simulation behind an HTTP and websocket API
//   - export: write the grid to xlsx, json, svg or txt
//   - store, config: manage persistence and settings
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context, and engine and store events are logged
// through observability hooks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/coinstack/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Restored 12 blocks (3ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports engine and store events at debug level.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.PlacementHooks = logHooks{}
	_ observability.StoreHooks     = logHooks{}
)

// registerHooks routes engine and store events to logger and to any extra
// hooks, such as the metrics collector of the serve command.
func registerHooks(logger *log.Logger, extra ...observability.Hooks) {
	observability.SetHooks(append([]observability.Hooks{logHooks{logger: logger}}, extra...)...)
}

func (h logHooks) OnSpawn(asset string, replicas int) {
	h.logger.Debug("spawn", "asset", asset, "replicas", replicas)
}

func (h logHooks) OnSettle(id, asset string, x, y int, relocated bool) {
	if relocated {
		h.logger.Debug("settle (relocated)", "asset", asset, "id", id, "x", x, "y", y)
		return
	}
	h.logger.Debug("settle", "asset", asset, "id", id, "x", x, "y", y)
}

func (h logHooks) OnOverflow(id, asset string) {
	h.logger.Warn("no room on the grid, block pinned", "asset", asset, "id", id)
}

func (h logHooks) OnRemove(id, asset string) {
	h.logger.Debug("remove", "asset", asset, "id", id)
}

func (h logHooks) OnReorganize(blocks, overflow int, d time.Duration) {
	h.logger.Debug("reorganize", "blocks", blocks, "overflow", overflow, "duration", d)
}

func (h logHooks) OnLoad(_ context.Context, backend string, records, skipped int, err error) {
	if err != nil {
		h.logger.Warn("load failed", "backend", backend, "error", err)
		return
	}
	h.logger.Debug("load", "backend", backend, "records", records, "skipped", skipped)
}

func (h logHooks) OnSave(_ context.Context, backend string, records, size int, err error) {
	if err != nil {
		h.logger.Warn("save failed", "backend", backend, "error", err)
		return
	}
	h.logger.Debug("save", "backend", backend, "records", records, "bytes", size)
}
