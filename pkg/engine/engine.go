// Package engine implements the grid placement engine.
//
// The engine owns the occupancy grid and every block. It turns an Add into
// falling blocks above the grid, advances them one row per [Engine.Step],
// commits them to the grid when they can fall no further, and recomputes
// positions for the whole block set on [Engine.Reorganize].
//
// # Collision rule
//
// A move is rejected when any set mask cell would land outside the side
// walls, on or below the floor, or on a visible cell owned by another settled
// block. Rows above the grid (negative y) never collide, so blocks spawn and
// fall freely above the visible area.
//
// # Concurrency
//
// Every exported method takes the engine lock, which makes the engine the
// single mutation point of the grid. Reorganize runs to completion under the
// lock, so concurrent Add and Remove calls queue behind it.
//
// # Overflow
//
// A block that cannot be placed in any column is pinned at top-center and
// flagged [block.Block.Overflow]. Pinned blocks own no grid cells, which keeps
// the no-overlap invariant intact when the grid is too small for the
// accumulated mass. Placement exhaustion is never an error.
package engine

import (
	"sync"
	"time"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/grid"
	"github.com/matzehuels/coinstack/pkg/observability"
)

// Default grid size: a 600x900 viewport with 30px cells.
const (
	DefaultWidth  = 20
	DefaultHeight = 30
)

// Config sets the engine's grid size and spawn pacing.
type Config struct {
	Width  int
	Height int

	// StaggerTicks delays each replica of one Add by this many ticks after
	// the previous one. Zero uses the mask height plus one, which keeps
	// replicas of the same Add from overlapping while they fall.
	StaggerTicks int
}

// Engine is the placement engine. The zero value is not usable; call New.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	grid   *grid.Grid
	blocks []*block.Block // creation order
	byID   map[string]*block.Block
	tick   uint64
	batch  uint64
}

// New creates an engine with an empty grid. Non-positive dimensions fall back
// to the defaults.
func New(cfg Config) *Engine {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.StaggerTicks < 0 {
		cfg.StaggerTicks = 0
	}
	return &Engine{
		cfg:  cfg,
		grid: grid.New(cfg.Width, cfg.Height),
		byID: make(map[string]*block.Block),
	}
}

// Width returns the grid width in cells.
func (e *Engine) Width() int { return e.cfg.Width }

// Height returns the grid height in cells.
func (e *Engine) Height() int { return e.cfg.Height }

// =============================================================================
// Add
// =============================================================================

// Add spawns the blocks representing quantity of assetID above the grid.
//
// The catalog decides the mask and the replica count; each replica carries
// quantity / replicas. Replicas start at the centered column with their
// bottom row just above the grid and are released on staggered ticks.
//
// Add rejects malformed asset ids and non-positive quantities, leaving the
// engine unchanged. A shape larger than the grid is accepted and ends pinned
// as overflow once released.
func (e *Engine) Add(assetID string, quantity float64) ([]block.Block, error) {
	if err := errors.ValidateAssetID(assetID); err != nil {
		return nil, err
	}
	if err := errors.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	d := catalog.Describe(assetID, quantity)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.batch++
	stagger := e.cfg.StaggerTicks
	if stagger == 0 {
		stagger = d.Mask.Height() + 1
	}
	per := quantity / float64(d.Replicas)
	x := e.centerX(d.Mask.Width())

	out := make([]block.Block, 0, d.Replicas)
	for i := 0; i < d.Replicas; i++ {
		b := block.New(assetID, per, d.Mask, d.Visual)
		b.Batch = e.batch
		b.X = x
		b.Y = -d.Mask.Height()
		b.ReleaseTick = e.tick + uint64(i*stagger)
		e.blocks = append(e.blocks, b)
		e.byID[b.ID] = b
		out = append(out, b.Clone())
	}

	observability.Placement().OnSpawn(assetID, d.Replicas)
	return out, nil
}

// Layout describes one saved batch to rebuild with [Engine.Place].
type Layout struct {
	AssetID  string
	Quantity float64 // total quantity still alive in the batch
	Replicas int
	// At holds one saved mask origin per replica. When its length does not
	// match Replicas the blocks are spawned falling instead.
	At      []block.Point
	Created time.Time
}

// Place rebuilds a saved batch with exactly l.Replicas blocks, each carrying
// l.Quantity / l.Replicas, so removals survive a save and restore.
//
// With positions, each block settles where it was saved. A block whose saved
// position is off the grid or already taken is relocated with the
// reorganization search and pinned when that fails. Without positions the
// blocks are spawned falling like [Engine.Add].
func (e *Engine) Place(l Layout) ([]block.Block, error) {
	if err := errors.ValidateAssetID(l.AssetID); err != nil {
		return nil, err
	}
	if err := errors.ValidateQuantity(l.Quantity); err != nil {
		return nil, err
	}
	if l.Replicas < 1 || l.Replicas > catalog.MaxReplicas(l.AssetID) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%s cannot have %d blocks (max %d)", l.AssetID, l.Replicas, catalog.MaxReplicas(l.AssetID))
	}

	d := catalog.Describe(l.AssetID, l.Quantity)
	placed := len(l.At) == l.Replicas

	e.mu.Lock()
	defer e.mu.Unlock()

	e.batch++
	stagger := e.cfg.StaggerTicks
	if stagger == 0 {
		stagger = d.Mask.Height() + 1
	}
	per := l.Quantity / float64(l.Replicas)

	out := make([]block.Block, 0, l.Replicas)
	for i := 0; i < l.Replicas; i++ {
		b := block.New(l.AssetID, per, d.Mask, d.Visual)
		b.Batch = e.batch
		if !l.Created.IsZero() {
			b.CreatedAt = l.Created
		}
		e.blocks = append(e.blocks, b)
		e.byID[b.ID] = b

		if placed {
			b.X, b.Y = l.At[i].X, l.At[i].Y
			e.settle(b)
		} else {
			b.X = e.centerX(d.Mask.Width())
			b.Y = -d.Mask.Height()
			b.ReleaseTick = e.tick + uint64(i*stagger)
		}
		out = append(out, b.Clone())
	}

	observability.Placement().OnSpawn(l.AssetID, l.Replicas)
	return out, nil
}

// centerX is the column that centers a mask of width w, never left of 0.
func (e *Engine) centerX(w int) int {
	return max(0, (e.cfg.Width-w)/2)
}

// =============================================================================
// Descent
// =============================================================================

// StepResult summarizes one tick.
type StepResult struct {
	Tick     uint64   // the tick that was executed
	Moved    int      // blocks that fell one row
	Settled  []string // blocks committed during this tick
	Overflow []string // blocks pinned during this tick
	Falling  int      // blocks still falling afterwards
}

// Changed reports whether the tick altered any block.
func (r StepResult) Changed() bool {
	return r.Moved > 0 || len(r.Settled) > 0 || len(r.Overflow) > 0
}

// Step advances the simulation by one tick.
//
// Released falling blocks are visited in creation order. A block that can
// move one row down does so; otherwise it settles. Blocks settling in the
// same tick are committed one after another, so a later block collides with
// an earlier one.
func (e *Engine) Step() StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := StepResult{Tick: e.tick}
	for _, b := range e.blocks {
		if b.State != block.Falling || b.ReleaseTick > e.tick {
			continue
		}
		if e.canMove(b, 0, 1) {
			b.Y++
			res.Moved++
			continue
		}
		if e.settle(b) {
			res.Settled = append(res.Settled, b.ID)
		} else {
			res.Overflow = append(res.Overflow, b.ID)
		}
	}
	e.tick++
	res.Falling = e.fallingLocked()
	return res
}

// Drain steps until no block is falling or maxTicks ticks have run, and
// returns the number of ticks executed.
func (e *Engine) Drain(maxTicks int) int {
	n := 0
	for n < maxTicks && e.Falling() > 0 {
		e.Step()
		n++
	}
	return n
}

// Falling returns the number of blocks that have not settled.
func (e *Engine) Falling() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fallingLocked()
}

func (e *Engine) fallingLocked() int {
	n := 0
	for _, b := range e.blocks {
		if b.State == block.Falling {
			n++
		}
	}
	return n
}

// settle moves b to Settled and commits it. If b cannot be committed where it
// stopped (topped out above the grid, or overlapping a block that settled
// earlier in the same tick) it is relocated with the reorganization search,
// and pinned when that fails. It returns false when b was pinned.
func (e *Engine) settle(b *block.Block) bool {
	b.State = block.Settled
	if e.fits(b, b.X, b.Y) {
		e.commit(b)
		observability.Placement().OnSettle(b.ID, b.AssetID, b.X, b.Y, false)
		return true
	}
	if x, y, ok := e.restingPosition(b); ok {
		b.X, b.Y = x, y
		e.commit(b)
		observability.Placement().OnSettle(b.ID, b.AssetID, b.X, b.Y, true)
		return true
	}
	e.pin(b)
	return false
}

// =============================================================================
// Collision
// =============================================================================

// CanMove reports whether b could move by (dx, dy) against the committed grid.
// Cells owned by b itself never block it.
func (e *Engine) CanMove(b block.Block, dx, dy int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canMove(&b, dx, dy)
}

func (e *Engine) canMove(b *block.Block, dx, dy int) bool {
	return e.canPlace(b, b.X+dx, b.Y+dy)
}

// canPlace applies the collision rule with the mask origin at (x, y).
func (e *Engine) canPlace(b *block.Block, x, y int) bool {
	for _, c := range b.Mask.Cells() {
		tx, ty := x+c.Col, y+c.Row
		if tx < 0 || tx >= e.cfg.Width || ty >= e.cfg.Height {
			return false
		}
		if ty < 0 {
			continue
		}
		if owner := e.grid.Owner(tx, ty); owner != grid.Empty && owner != b.ID {
			return false
		}
	}
	return true
}

// fits is canPlace restricted to the visible grid: every cell must be in bounds.
func (e *Engine) fits(b *block.Block, x, y int) bool {
	if y < 0 {
		return false
	}
	return e.canPlace(b, x, y)
}

func (e *Engine) commit(b *block.Block) {
	b.Overflow = false
	for _, p := range b.Cells() {
		e.grid.Set(p.X, p.Y, b.ID)
	}
}

// pin parks b at top-center without claiming cells.
func (e *Engine) pin(b *block.Block) {
	b.State = block.Settled
	b.Overflow = true
	b.X = e.centerX(b.Width())
	b.Y = 0
	observability.Placement().OnOverflow(b.ID, b.AssetID)
}

// =============================================================================
// Reorganization
// =============================================================================

// ReorganizeResult summarizes a reorganization pass.
type ReorganizeResult struct {
	Placed   int
	Overflow []string
	Duration time.Duration
}

// Reorganize clears the grid and re-places every block in creation order
// with a greedy leftmost fit. Falling blocks are placed too and end settled.
//
// The pass is deterministic: running it twice with no Add or Remove in
// between yields the same grid.
func (e *Engine) Reorganize() ReorganizeResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reorganize()
}

func (e *Engine) reorganize() ReorganizeResult {
	start := time.Now()
	var res ReorganizeResult

	e.grid.Reset()
	for _, b := range e.blocks {
		b.State = block.Settled
		if x, y, ok := e.restingPosition(b); ok {
			b.X, b.Y = x, y
			e.commit(b)
			res.Placed++
			continue
		}
		e.pin(b)
		res.Overflow = append(res.Overflow, b.ID)
	}

	res.Duration = time.Since(start)
	observability.Placement().OnReorganize(len(e.blocks), len(res.Overflow), res.Duration)
	return res
}

// restingPosition scans columns left to right and drops b from above the grid
// in each. The first column whose lowest reachable row keeps b entirely on
// the grid wins; ties go to the smaller x by construction.
func (e *Engine) restingPosition(b *block.Block) (x, y int, ok bool) {
	for x = 0; x+b.Width() <= e.cfg.Width; x++ {
		y = -b.Height()
		for e.canPlace(b, x, y+1) {
			y++
		}
		if y >= 0 {
			return x, y, true
		}
	}
	return 0, 0, false
}

// =============================================================================
// Removal
// =============================================================================

// Remove deletes the block with the given id and reorganizes the remaining
// blocks before returning. Unknown ids leave the engine unchanged.
func (e *Engine) Remove(id string) (block.Block, error) {
	if err := errors.ValidateBlockID(id); err != nil {
		return block.Block{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.byID[id]
	if !ok {
		return block.Block{}, errors.New(errors.ErrCodeBlockNotFound, "block %s not found", id)
	}

	e.grid.ClearOwner(id)
	delete(e.byID, id)
	for i, other := range e.blocks {
		if other == b {
			e.blocks = append(e.blocks[:i], e.blocks[i+1:]...)
			break
		}
	}
	observability.Placement().OnRemove(b.ID, b.AssetID)

	e.reorganize()
	return b.Clone(), nil
}

// Clear removes every block and empties the grid. The tick counter keeps
// running.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.grid.Reset()
	e.blocks = nil
	e.byID = make(map[string]*block.Block)
}
