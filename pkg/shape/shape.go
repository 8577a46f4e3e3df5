// Package shape defines block masks and their visual identity.
//
// A [Mask] is a rectangular boolean pattern whose origin is the top-left cell.
// Row index grows downward, matching grid coordinates, so a mask cell (r, c)
// of a block at (x, y) covers grid cell (x+c, y+r).
package shape

import (
	"fmt"
	"strings"
)

// Cell is a set cell of a mask, relative to the mask origin.
type Cell struct {
	Row, Col int
}

// Mask is a rectangular boolean cell pattern. All rows have equal length.
type Mask [][]bool

// Parse builds a mask from text rows where '#' marks a set cell and '.' an
// empty one. Rows must be non-empty and of equal length.
func Parse(rows ...string) (Mask, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("mask has no rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("mask row 0 is empty")
	}
	m := make(Mask, len(rows))
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("mask row %d has width %d, want %d", r, len(row), width)
		}
		m[r] = make([]bool, width)
		for c, ch := range row {
			switch ch {
			case '#':
				m[r][c] = true
			case '.':
			default:
				return nil, fmt.Errorf("mask row %d: unexpected %q", r, ch)
			}
		}
	}
	return m, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// package-level shape tables.
func MustParse(rows ...string) Mask {
	m, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return m
}

// Rect returns a fully set w x h mask.
func Rect(w, h int) Mask {
	m := make(Mask, h)
	for r := range m {
		m[r] = make([]bool, w)
		for c := range m[r] {
			m[r][c] = true
		}
	}
	return m
}

// Width returns the number of columns.
func (m Mask) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Height returns the number of rows.
func (m Mask) Height() int { return len(m) }

// At reports whether the cell at (row, col) is set. Out-of-range is false.
func (m Mask) At(row, col int) bool {
	if row < 0 || row >= len(m) || col < 0 || col >= len(m[row]) {
		return false
	}
	return m[row][col]
}

// Cells returns the set cells in row-major order.
func (m Mask) Cells() []Cell {
	var cells []Cell
	for r, row := range m {
		for c, set := range row {
			if set {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// Area returns the number of set cells.
func (m Mask) Area() int { return len(m.Cells()) }

// Clone returns a deep copy so callers can hand masks out without sharing rows.
func (m Mask) Clone() Mask {
	if m == nil {
		return nil
	}
	out := make(Mask, len(m))
	for r, row := range m {
		out[r] = append([]bool(nil), row...)
	}
	return out
}

// Rows renders the mask in the Parse format.
func (m Mask) Rows() []string {
	rows := make([]string, len(m))
	for r, row := range m {
		var b strings.Builder
		for _, set := range row {
			if set {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		rows[r] = b.String()
	}
	return rows
}

// String implements fmt.Stringer.
func (m Mask) String() string { return strings.Join(m.Rows(), "/") }

// Visual is the presentation identity of a block. The core never draws; it
// only carries these values to renderers.
type Visual struct {
	Name   string `json:"name"`
	Glyph  string `json:"glyph"`
	Fill   string `json:"fill"`
	Stroke string `json:"stroke"`
}
