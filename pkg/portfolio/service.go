// Package portfolio ties the placement engine, market data and persistence
// together behind one service.
//
// The Service is the entry point shared by the CLI, the TUI and the HTTP
// server. It forwards user intents to the engine, recomputes ledger metrics
// from the live block set, drives the simulation clock, and publishes a
// [Snapshot] to subscribers after every mutation.
//
// # Usage
//
//	svc := portfolio.NewService(engine.New(cfg), prices.NewTable(prices.Fallback()), st, logger, portfolio.Options{})
//	if _, err := svc.Restore(ctx); err != nil {
//	    logger.Warn("restore failed", "error", err)
//	}
//	go svc.Run(ctx, 100*time.Millisecond)
//
//	updates, cancel := svc.Subscribe(8)
//	defer cancel()
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/store"
)

// Options tunes a Service.
type Options struct {
	// Key is the store key the portfolio is saved under.
	Key string

	// Aggregate merges saved records of one asset into a single Add on restore.
	Aggregate bool

	// DrainTicks bounds Drain and the settle phase of Restore.
	DrainTicks int
}

// Service owns one portfolio.
//
// Engine mutations are serialized by the engine itself; the service lock only
// guards subscribers and the pause flag.
type Service struct {
	Engine *engine.Engine
	Prices *prices.Table
	Store  store.Store
	Logger *log.Logger

	key        string
	aggregate  bool
	drainTicks int

	mu      sync.Mutex
	paused  bool
	subs    map[int]chan Snapshot
	nextSub int
}

// NewService creates a service. Nil collaborators get defaults: an engine
// with the default grid, the fallback price table, a null store and
// log.Default().
func NewService(e *engine.Engine, p *prices.Table, s store.Store, logger *log.Logger, opts Options) *Service {
	if e == nil {
		e = engine.New(engine.Config{})
	}
	if p == nil {
		p = prices.NewTable(prices.Fallback())
	}
	if s == nil {
		s = store.NewNullStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.Key == "" {
		opts.Key = store.DefaultKey
	}
	if opts.DrainTicks <= 0 {
		opts.DrainTicks = 10_000
	}
	return &Service{
		Engine:     e,
		Prices:     p,
		Store:      s,
		Logger:     logger,
		key:        opts.Key,
		aggregate:  opts.Aggregate,
		drainTicks: opts.DrainTicks,
		subs:       make(map[int]chan Snapshot),
	}
}

// =============================================================================
// Snapshots
// =============================================================================

// Snapshot is the presentation state of the portfolio.
type Snapshot struct {
	Engine   engine.Snapshot
	Paused   bool
	Holdings []ledger.Holding
	Metrics  ledger.Metrics
	TakenAt  time.Time
}

// Snapshot returns the current state with freshly computed metrics.
func (s *Service) Snapshot() Snapshot {
	es := s.Engine.Snapshot()
	pos := ledger.Positions(es.Blocks)
	return Snapshot{
		Engine:   es,
		Paused:   s.Paused(),
		Holdings: ledger.Holdings(pos, s.Prices),
		Metrics:  ledger.Recompute(pos, s.Prices),
		TakenAt:  time.Now(),
	}
}

// Metrics recomputes the ledger metrics.
func (s *Service) Metrics() ledger.Metrics {
	return ledger.Recompute(ledger.Positions(s.Engine.Blocks()), s.Prices)
}

// Holdings recomputes the per-asset holdings.
func (s *Service) Holdings() []ledger.Holding {
	return ledger.Holdings(ledger.Positions(s.Engine.Blocks()), s.Prices)
}

// Block returns a block with its valuation.
func (s *Service) Block(id string) (block.Block, ledger.Detail, error) {
	if err := errors.ValidateBlockID(id); err != nil {
		return block.Block{}, ledger.Detail{}, err
	}
	b, ok := s.Engine.Block(id)
	if !ok {
		return block.Block{}, ledger.Detail{}, errors.New(errors.ErrCodeBlockNotFound, "block %s not found", id)
	}
	return b, ledger.BlockDetail(b, s.Prices, s.Metrics().TotalValue), nil
}

// Subscribe returns a channel receiving a snapshot after every mutation and
// a function that unsubscribes and closes it. Slow subscribers miss
// snapshots rather than block the service.
func (s *Service) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) notify() {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	if n == 0 {
		return
	}

	snap := s.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// =============================================================================
// Intents
// =============================================================================

// Add spawns the blocks for a holding.
func (s *Service) Add(ctx context.Context, assetID string, quantity float64) ([]block.Block, error) {
	blocks, err := s.Engine.Add(assetID, quantity)
	if err != nil {
		s.Logger.Debug("add rejected", "asset", assetID, "quantity", quantity, "error", err)
		return nil, err
	}
	s.Logger.Info("added holding", "asset", assetID, "quantity", quantity, "blocks", len(blocks))
	s.notify()
	return blocks, nil
}

// Remove deletes a block and compacts the rest.
func (s *Service) Remove(ctx context.Context, id string) (block.Block, error) {
	b, err := s.Engine.Remove(id)
	if err != nil {
		return block.Block{}, err
	}
	s.Logger.Info("removed block", "id", b.ID, "asset", b.AssetID, "quantity", b.Quantity)
	s.notify()
	return b, nil
}

// Reorganize compacts the grid.
func (s *Service) Reorganize(ctx context.Context) engine.ReorganizeResult {
	res := s.Engine.Reorganize()
	s.Logger.Info("reorganized", "placed", res.Placed, "overflow", len(res.Overflow), "duration", res.Duration)
	s.notify()
	return res
}

// Clear drops every block and deletes the saved portfolio.
func (s *Service) Clear(ctx context.Context) error {
	s.Engine.Clear()
	s.notify()
	if err := s.Store.Delete(ctx, s.key); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "delete saved portfolio")
	}
	s.Logger.Info("cleared portfolio")
	return nil
}

// SetPrice updates one quote and republishes.
func (s *Service) SetPrice(assetID string, q prices.Quote) error {
	if err := s.Prices.Set(assetID, q); err != nil {
		return err
	}
	s.notify()
	return nil
}

// SetPrices merges quotes into the table and republishes.
func (s *Service) SetPrices(quotes map[string]prices.Quote) {
	s.Prices.Merge(quotes)
	s.Logger.Debug("prices updated", "assets", len(quotes))
	s.notify()
}

// =============================================================================
// Clock
// =============================================================================

// Step advances the simulation by one tick unless paused. It reports whether
// a tick ran.
func (s *Service) Step() (engine.StepResult, bool) {
	if s.Paused() {
		return engine.StepResult{}, false
	}
	res := s.Engine.Step()
	if res.Changed() {
		if len(res.Overflow) > 0 {
			s.Logger.Warn("grid full, blocks pinned", "count", len(res.Overflow))
		}
		s.notify()
	}
	return res, true
}

// Drain steps until every block has settled, ignoring the pause flag.
func (s *Service) Drain() int {
	n := s.Engine.Drain(s.drainTicks)
	if n > 0 {
		s.notify()
	}
	return n
}

// Run drives Step from a ticker until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "tick interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step()
		}
	}
}

// Pause stops the clock. Intents are still accepted.
func (s *Service) Pause() {
	s.setPaused(true)
}

// Resume restarts the clock.
func (s *Service) Resume() {
	s.setPaused(false)
}

// Paused reports whether the clock is stopped.
func (s *Service) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Service) setPaused(v bool) {
	s.mu.Lock()
	changed := s.paused != v
	s.paused = v
	s.mu.Unlock()
	if changed {
		s.Logger.Debug("clock", "paused", v)
		s.notify()
	}
}
