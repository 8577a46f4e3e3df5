package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/prices"
)

// testSnapshot builds a 4x3 grid holding an unknown asset's 2x2 block settled
// in the middle columns, one dogecoin cube resting on it, and three more cubes
// waiting above the grid.
func testSnapshot(t *testing.T) portfolio.Snapshot {
	t.Helper()

	e := engine.New(engine.Config{Width: 4, Height: 3})
	if _, err := e.Add("pepe", 1); err != nil { // 2x2 fallback shape
		t.Fatalf("Add() error: %v", err)
	}
	e.Drain(100)
	if _, err := e.Add(catalog.Dogecoin, 0.1); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	e.Step()
	e.Step()

	es := e.Snapshot()
	pos := ledger.Positions(es.Blocks)
	src := prices.NewTable(prices.Fallback())
	return portfolio.Snapshot{
		Engine:   es,
		Holdings: ledger.Holdings(pos, src),
		Metrics:  ledger.Recompute(pos, src),
	}
}

func TestRenderJSON(t *testing.T) {
	snap := testSnapshot(t)

	data, err := RenderJSON(snap)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if doc.Width != 4 || doc.Height != 3 {
		t.Errorf("size = %dx%d, want 4x3", doc.Width, doc.Height)
	}
	if len(doc.Blocks) != 5 {
		t.Fatalf("Blocks count = %d, want 5", len(doc.Blocks))
	}
	if doc.Cells != nil {
		t.Error("Cells should be omitted by default")
	}
	if len(doc.Holdings) != 2 {
		t.Errorf("Holdings count = %d, want 2", len(doc.Holdings))
	}
	if doc.Metrics.AssetCount != 2 {
		t.Errorf("Metrics.AssetCount = %d, want 2", doc.Metrics.AssetCount)
	}
	if doc.Falling != 3 {
		t.Errorf("Falling = %d, want 3", doc.Falling)
	}

	first := doc.Blocks[0]
	if first.AssetID != "pepe" || first.State != "settled" || first.Width != 2 || first.Height != 2 {
		t.Errorf("first block = %+v", first)
	}
	if strings.Join(first.Mask, "/") != "##/##" {
		t.Errorf("Mask = %v", first.Mask)
	}
	if first.X != 1 || first.Y != 1 {
		t.Errorf("first block at (%d, %d), want (1, 1)", first.X, first.Y)
	}
	if cube := doc.Blocks[1]; cube.Glyph != "Ð" || cube.State != "settled" || cube.Y != 0 {
		t.Errorf("dogecoin cube = %+v", cube)
	}
}

func TestRenderJSONWithOptions(t *testing.T) {
	snap := testSnapshot(t)

	data, err := RenderJSON(snap, WithJSONCells(), WithJSONCompact(), WithoutJSONHoldings())
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("compact output should be a single line")
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if len(doc.Cells) != 3 || len(doc.Cells[0]) != 4 {
		t.Fatalf("Cells = %v", doc.Cells)
	}
	if doc.Cells[2][1] != doc.Blocks[0].ID {
		t.Errorf("cell (1, 2) = %q, want %q", doc.Cells[2][1], doc.Blocks[0].ID)
	}
	if doc.Cells[2][0] != "" {
		t.Errorf("cell (0, 2) = %q, want empty", doc.Cells[2][0])
	}
	if doc.Holdings != nil {
		t.Error("holdings should be dropped")
	}
}

func TestRenderText(t *testing.T) {
	snap := testSnapshot(t).Engine

	got := RenderText(snap)
	want := ".Ð..\n" +
		".??.\n" +
		".??.\n"
	if got != want {
		t.Errorf("RenderText() =\n%s\nwant\n%s", got, want)
	}

	got = RenderText(snap, WithTextBorder(), WithTextEmpty(' '))
	want = "+----+\n" +
		"| Ð  |\n" +
		"| ?? |\n" +
		"| ?? |\n" +
		"+----+\n"
	if got != want {
		t.Errorf("RenderText(border) =\n%s\nwant\n%s", got, want)
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		glyph string
		want  rune
	}{
		{"₿", '₿'},
		{"Ξ", 'Ξ'},
		{"", '#'},
	}
	for _, tt := range tests {
		b := block.Block{}
		b.Visual.Glyph = tt.glyph
		if got := Glyph(b); got != tt.want {
			t.Errorf("Glyph(%q) = %q, want %q", tt.glyph, got, tt.want)
		}
	}
}

func TestLayerFalling(t *testing.T) {
	e := engine.New(engine.Config{Width: 3, Height: 3})
	if _, err := e.Add(catalog.Bitcoin, 0.1); err == nil {
		t.Fatal("4x4 bitcoin should not fit a 3x3 grid")
	}
	if _, err := e.Add(catalog.ShibaInu, 0.1); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	e.Step() // first cube enters row 0

	snap := e.Snapshot()
	if l := Layer(snap, false); l[0][1] != nil {
		t.Error("falling blocks should be hidden without the overlay")
	}
	l := Layer(snap, true)
	if l[0][1] == nil || l[0][1].AssetID != catalog.ShibaInu {
		t.Errorf("Layer(falling)[0][1] = %v, want shiba-inu cube", l[0][1])
	}
}

func TestRenderSVG(t *testing.T) {
	snap := testSnapshot(t).Engine

	svg := string(RenderSVG(snap, WithSVGCellSize(10), WithSVGGlyphs(), WithSVGBackground("#000")))
	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 30"`) {
		t.Errorf("unexpected header: %.80s", svg)
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("svg not closed")
	}
	// Waiting cubes are above the grid and draw no cells.
	if n := strings.Count(svg, `class="cell"`); n != 5 {
		t.Errorf("cell rects = %d, want 5", n)
	}
	if !strings.Contains(svg, `class="block falling"`) {
		t.Error("falling blocks should be marked")
	}
	if !strings.Contains(svg, `<text class="glyph"`) {
		t.Error("glyphs requested but not drawn")
	}
}
