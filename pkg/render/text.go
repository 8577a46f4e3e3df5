package render

import (
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/engine"
)

// TextOption configures [RenderText].
type TextOption func(*textRenderer)

type textRenderer struct {
	border  bool
	falling bool
	empty   rune
}

// WithTextBorder frames the grid.
func WithTextBorder() TextOption { return func(r *textRenderer) { r.border = true } }

// WithTextFalling overlays the visible cells of falling blocks.
func WithTextFalling() TextOption { return func(r *textRenderer) { r.falling = true } }

// WithTextEmpty sets the rune used for empty cells (default '.').
func WithTextEmpty(c rune) TextOption { return func(r *textRenderer) { r.empty = c } }

// Glyph returns the single rune used for b in text output: the first rune of
// its glyph, or '#' when it has none.
func Glyph(b block.Block) rune {
	if r, _ := utf8.DecodeRuneInString(b.Visual.Glyph); r != utf8.RuneError {
		return r
	}
	return '#'
}

// Layer maps every visible cell to the block drawn there. Committed blocks
// come from the occupancy rows; falling blocks are added when falling is set.
func Layer(snap engine.Snapshot, falling bool) [][]*block.Block {
	byID := make(map[string]*block.Block, len(snap.Blocks))
	for i := range snap.Blocks {
		byID[snap.Blocks[i].ID] = &snap.Blocks[i]
	}

	out := make([][]*block.Block, snap.Height)
	for y := range out {
		out[y] = make([]*block.Block, snap.Width)
		if y < len(snap.Cells) {
			for x, id := range snap.Cells[y] {
				if x < snap.Width && id != "" {
					out[y][x] = byID[id]
				}
			}
		}
	}

	if falling {
		for i := range snap.Blocks {
			b := &snap.Blocks[i]
			if b.State != block.Falling {
				continue
			}
			for _, p := range b.Cells() {
				if p.X >= 0 && p.X < snap.Width && p.Y >= 0 && p.Y < snap.Height && out[p.Y][p.X] == nil {
					out[p.Y][p.X] = b
				}
			}
		}
	}
	return out
}

// RenderText draws the grid as lines of runes.
func RenderText(snap engine.Snapshot, opts ...TextOption) string {
	r := textRenderer{empty: '.'}
	for _, opt := range opts {
		opt(&r)
	}

	var sb strings.Builder
	edge := func() {
		if r.border {
			sb.WriteByte('+')
			sb.WriteString(strings.Repeat("-", snap.Width))
			sb.WriteString("+\n")
		}
	}

	edge()
	for _, row := range Layer(snap, r.falling) {
		if r.border {
			sb.WriteByte('|')
		}
		for _, b := range row {
			if b == nil {
				sb.WriteRune(r.empty)
			} else {
				sb.WriteRune(Glyph(*b))
			}
		}
		if r.border {
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	edge()
	return sb.String()
}
