package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/engine"
)

const svgStyle = `
    .cell { stroke-width: 2; }
    .falling .cell { opacity: 0.6; }
    .overflow .cell { opacity: 0.35; stroke-dasharray: 4 2; }
    .glyph { font-family: sans-serif; font-weight: bold; fill: #ffffff; text-anchor: middle; dominant-baseline: central; }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	cell       int
	background string
	glyphs     bool
}

// WithSVGCellSize sets the cell edge in pixels (default 30).
func WithSVGCellSize(px int) SVGOption {
	return func(r *svgRenderer) {
		if px > 0 {
			r.cell = px
		}
	}
}

// WithSVGBackground sets the background fill (default "#0a0e27").
func WithSVGBackground(c string) SVGOption { return func(r *svgRenderer) { r.background = c } }

// WithSVGGlyphs labels each block with its glyph.
func WithSVGGlyphs() SVGOption { return func(r *svgRenderer) { r.glyphs = true } }

// RenderSVG draws the grid. Falling blocks are drawn where their cells are
// visible and overflow blocks are drawn faded at their pinned position.
func RenderSVG(snap engine.Snapshot, opts ...SVGOption) []byte {
	r := svgRenderer{cell: 30, background: "#0a0e27"}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := snap.Width*r.cell, snap.Height*r.cell
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", w, h, w, h)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgStyle)
	fmt.Fprintf(&buf, `  <rect width="%d" height="%d" fill="%s"/>`+"\n", w, h, html.EscapeString(r.background))

	for _, b := range snap.Blocks {
		renderSVGBlock(&buf, &r, b)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderSVGBlock(buf *bytes.Buffer, r *svgRenderer, b block.Block) {
	class := "block"
	switch {
	case b.Overflow:
		class += " overflow"
	case b.State == block.Falling:
		class += " falling"
	}
	fmt.Fprintf(buf, `  <g id="block-%s" class="%s" data-asset="%s">`+"\n",
		html.EscapeString(b.ID), class, html.EscapeString(b.AssetID))

	drawn := 0
	for _, p := range b.Cells() {
		if p.Y < 0 {
			continue
		}
		fmt.Fprintf(buf, `    <rect class="cell" x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="%s"/>`+"\n",
			p.X*r.cell, p.Y*r.cell, r.cell, r.cell,
			html.EscapeString(b.Visual.Fill), html.EscapeString(b.Visual.Stroke))
		drawn++
	}

	if r.glyphs && drawn > 0 && b.Visual.Glyph != "" {
		cx := float64(b.X*r.cell) + float64(b.Width()*r.cell)/2
		cy := float64(b.Y*r.cell) + float64(b.Height()*r.cell)/2
		fmt.Fprintf(buf, `    <text class="glyph" x="%.1f" y="%.1f" font-size="%d">%s</text>`+"\n",
			cx, cy, r.cell*2/3, html.EscapeString(b.Visual.Glyph))
	}
	buf.WriteString("  </g>\n")
}
