package render

import (
	"encoding/json"
	"time"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/portfolio"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	cells    bool
	compact  bool
	holdings bool
}

// WithJSONCells includes the occupancy rows (block id or "" per cell).
func WithJSONCells() JSONOption { return func(r *jsonRenderer) { r.cells = true } }

// WithJSONCompact disables indentation, for streaming.
func WithJSONCompact() JSONOption { return func(r *jsonRenderer) { r.compact = true } }

// WithoutJSONHoldings drops the holdings table.
func WithoutJSONHoldings() JSONOption { return func(r *jsonRenderer) { r.holdings = false } }

// Document is the JSON presentation of a snapshot.
type Document struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Tick     uint64           `json:"tick"`
	Paused   bool             `json:"paused"`
	Falling  int              `json:"falling"`
	TakenAt  time.Time        `json:"taken_at"`
	Blocks   []BlockDoc       `json:"blocks"`
	Cells    [][]string       `json:"cells,omitempty"`
	Holdings []ledger.Holding `json:"holdings,omitempty"`
	Metrics  ledger.Metrics   `json:"metrics"`
}

// BlockDoc is one block in a Document.
type BlockDoc struct {
	ID       string   `json:"id"`
	AssetID  string   `json:"asset_id"`
	Name     string   `json:"name"`
	Glyph    string   `json:"glyph"`
	Fill     string   `json:"fill"`
	Stroke   string   `json:"stroke"`
	Quantity float64  `json:"quantity"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Mask     []string `json:"mask"`
	State    string   `json:"state"`
	Overflow bool     `json:"overflow,omitempty"`
}

// NewDocument builds the document for snap.
func NewDocument(snap portfolio.Snapshot, opts ...JSONOption) Document {
	r := jsonRenderer{holdings: true}
	for _, opt := range opts {
		opt(&r)
	}

	doc := Document{
		Width:   snap.Engine.Width,
		Height:  snap.Engine.Height,
		Tick:    snap.Engine.Tick,
		Paused:  snap.Paused,
		Falling: snap.Engine.Falling(),
		TakenAt: snap.TakenAt,
		Blocks:  buildBlockDocs(snap.Engine.Blocks),
		Metrics: snap.Metrics,
	}
	if r.cells {
		doc.Cells = snap.Engine.Cells
	}
	if r.holdings {
		doc.Holdings = snap.Holdings
	}
	return doc
}

// RenderJSON exports the snapshot as a JSON document, pretty-printed unless
// [WithJSONCompact] is given.
func RenderJSON(snap portfolio.Snapshot, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	doc := NewDocument(snap, opts...)
	if r.compact {
		return json.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// NewBlockDoc converts one block.
func NewBlockDoc(b block.Block) BlockDoc {
	return BlockDoc{
		ID:       b.ID,
		AssetID:  b.AssetID,
		Name:     b.Visual.Name,
		Glyph:    b.Visual.Glyph,
		Fill:     b.Visual.Fill,
		Stroke:   b.Visual.Stroke,
		Quantity: b.Quantity,
		X:        b.X,
		Y:        b.Y,
		Width:    b.Width(),
		Height:   b.Height(),
		Mask:     b.Mask.Rows(),
		State:    b.State.String(),
		Overflow: b.Overflow,
	}
}

func buildBlockDocs(blocks []block.Block) []BlockDoc {
	out := make([]BlockDoc, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, NewBlockDoc(b))
	}
	return out
}
