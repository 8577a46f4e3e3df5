package engine

import (
	"fmt"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/grid"
)

// Snapshot is an immutable copy of the engine state.
type Snapshot struct {
	Width  int
	Height int
	Tick   uint64
	Blocks []block.Block // creation order
	Cells  [][]string    // [row][col] owner ids
}

// Falling returns the number of blocks in the snapshot that have not settled.
func (s Snapshot) Falling() int {
	n := 0
	for _, b := range s.Blocks {
		if b.State == block.Falling {
			n++
		}
	}
	return n
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	blocks := make([]block.Block, len(e.blocks))
	for i, b := range e.blocks {
		blocks[i] = b.Clone()
	}
	return Snapshot{
		Width:  e.cfg.Width,
		Height: e.cfg.Height,
		Tick:   e.tick,
		Blocks: blocks,
		Cells:  e.grid.Rows(),
	}
}

// Blocks returns copies of all blocks in creation order.
func (e *Engine) Blocks() []block.Block {
	return e.Snapshot().Blocks
}

// Block returns a copy of the block with the given id.
func (e *Engine) Block(id string) (block.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.byID[id]
	if !ok {
		return block.Block{}, false
	}
	return b.Clone(), true
}

// Len returns the number of live blocks.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.blocks)
}

// Grid returns a copy of the occupancy grid.
func (e *Engine) Grid() *grid.Grid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Clone()
}

// Check verifies that the grid and the block set agree: every committed block
// lies inside the grid and owns exactly its mask cells, and no other cell is
// owned. It returns the first violation found.
func (e *Engine) Check() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	want := grid.New(e.cfg.Width, e.cfg.Height)
	for _, b := range e.blocks {
		if !b.Committed() {
			continue
		}
		for _, p := range b.Cells() {
			if !want.InBounds(p.X, p.Y) {
				return fmt.Errorf("block %s cell (%d,%d) out of bounds", b.ID, p.X, p.Y)
			}
			if owner := want.Owner(p.X, p.Y); owner != grid.Empty {
				return fmt.Errorf("blocks %s and %s share cell (%d,%d)", owner, b.ID, p.X, p.Y)
			}
			want.Set(p.X, p.Y, b.ID)
		}
	}
	if !want.Equal(e.grid) {
		return fmt.Errorf("grid does not match committed blocks")
	}
	return nil
}
