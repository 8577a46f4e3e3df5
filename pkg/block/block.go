// Package block defines the unit placed on the grid.
//
// A Block represents a fraction of one asset holding. It is created Falling
// above the grid, moved one row per tick by the placement engine, and becomes
// Settled once it is committed to the occupancy grid. There is no transition
// back to Falling; reorganization repositions blocks but leaves them settled.
package block

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/coinstack/pkg/shape"
)

// State is the descent state of a block.
type State int

const (
	Falling State = iota
	Settled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Falling:
		return "falling"
	case Settled:
		return "settled"
	}
	return "unknown"
}

// Point is an absolute grid coordinate.
type Point struct {
	X, Y int
}

// Block is one placed unit of an asset holding.
//
// X and Y locate the mask origin (top-left). Y is negative while the block is
// still above the visible grid.
type Block struct {
	ID       string
	Batch    uint64 // sequence number of the Add that created the block
	AssetID  string
	Quantity float64 // submitted quantity divided by the replica count
	Mask     shape.Mask
	Visual   shape.Visual

	X, Y  int
	State State

	// ReleaseTick is the first tick at which the block may move.
	ReleaseTick uint64

	// Overflow marks a block pinned at top-center because no column could
	// hold it. Overflow blocks are settled but own no grid cells.
	Overflow bool

	CreatedAt time.Time
}

// New creates a falling block with a fresh identifier.
func New(assetID string, quantity float64, mask shape.Mask, visual shape.Visual) *Block {
	return &Block{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		Quantity:  quantity,
		Mask:      mask.Clone(),
		Visual:    visual,
		State:     Falling,
		CreatedAt: time.Now(),
	}
}

// Width returns the mask width in cells.
func (b *Block) Width() int { return b.Mask.Width() }

// Height returns the mask height in cells.
func (b *Block) Height() int { return b.Mask.Height() }

// Settled reports whether the block has left the Falling state.
func (b *Block) Settled() bool { return b.State == Settled }

// Committed reports whether the block owns grid cells.
func (b *Block) Committed() bool { return b.State == Settled && !b.Overflow }

// CellsAt returns the absolute cells the mask would cover with its origin at (x, y).
func (b *Block) CellsAt(x, y int) []Point {
	cells := b.Mask.Cells()
	pts := make([]Point, len(cells))
	for i, c := range cells {
		pts[i] = Point{X: x + c.Col, Y: y + c.Row}
	}
	return pts
}

// Cells returns the absolute cells covered at the current position.
func (b *Block) Cells() []Point { return b.CellsAt(b.X, b.Y) }

// Clone returns a deep copy suitable for handing out in snapshots.
func (b *Block) Clone() Block {
	c := *b
	c.Mask = b.Mask.Clone()
	return c
}
