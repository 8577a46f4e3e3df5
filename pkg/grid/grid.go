// Package grid implements the occupancy grid of settled blocks.
//
// The grid is a plain data structure: each cell is either empty or holds the
// id of the settled block that owns it. It has no notion of falling blocks,
// collision rules or gravity; those live in the placement engine.
//
// Grid is not safe for concurrent use. The engine serializes all access.
package grid

import (
	"fmt"
	"strings"
)

// Empty is the value of an unowned cell.
const Empty = ""

// Grid is a width x height array of cell owners stored row-major.
type Grid struct {
	width, height int
	cells         []string
}

// New creates an empty grid. Non-positive dimensions yield a 0x0 grid.
func New(width, height int) *Grid {
	if width <= 0 || height <= 0 {
		width, height = 0, 0
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]string, width*height),
	}
}

// Dimensions derives a grid size from a viewport in pixels and a fixed cell
// size. Partial cells are dropped.
func Dimensions(viewportWidth, viewportHeight, cellSize int) (width, height int) {
	if cellSize <= 0 {
		return 0, 0
	}
	return viewportWidth / cellSize, viewportHeight / cellSize
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) is a cell of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Owner returns the id owning (x, y), or Empty for free and out-of-range cells.
func (g *Grid) Owner(x, y int) string {
	if !g.InBounds(x, y) {
		return Empty
	}
	return g.cells[y*g.width+x]
}

// Set records id as the owner of (x, y). Out-of-range writes are ignored and
// reported as false.
func (g *Grid) Set(x, y int, id string) bool {
	if !g.InBounds(x, y) {
		return false
	}
	g.cells[y*g.width+x] = id
	return true
}

// ClearCell empties (x, y).
func (g *Grid) ClearCell(x, y int) {
	g.Set(x, y, Empty)
}

// ClearOwner empties every cell owned by id and returns how many were cleared.
func (g *Grid) ClearOwner(id string) int {
	if id == Empty {
		return 0
	}
	n := 0
	for i, owner := range g.cells {
		if owner == id {
			g.cells[i] = Empty
			n++
		}
	}
	return n
}

// Reset empties the whole grid.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = Empty
	}
}

// Occupied returns the number of owned cells.
func (g *Grid) Occupied() int {
	n := 0
	for _, owner := range g.cells {
		if owner != Empty {
			n++
		}
	}
	return n
}

// Owners returns, for every owning id, the number of cells it holds.
func (g *Grid) Owners() map[string]int {
	out := make(map[string]int)
	for _, owner := range g.cells {
		if owner != Empty {
			out[owner]++
		}
	}
	return out
}

// Rows returns a copy of the cells as [row][col].
func (g *Grid) Rows() [][]string {
	rows := make([][]string, g.height)
	for y := range rows {
		rows[y] = append([]string(nil), g.cells[y*g.width:(y+1)*g.width]...)
	}
	return rows
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	return &Grid{
		width:  g.width,
		height: g.height,
		cells:  append([]string(nil), g.cells...),
	}
}

// Equal reports whether both grids have the same size and owners.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// String renders the grid with '.' for empty cells and '#' for owned ones.
func (g *Grid) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d\n", g.width, g.height)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.Owner(x, y) == Empty {
				b.WriteByte('.')
			} else {
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
