// Package catalog maps an asset holding to the block shapes that represent it.
//
// [Describe] is a pure function: the same asset and quantity always produce
// the same [Descriptor], nothing is cached, and there are no error
// conditions. Unknown assets fall through to a 2x2 default with one replica.
//
// Replica counts scale with quantity but are capped per asset so a single
// holding can never flood the grid:
//
//	bitcoin      4x4 square    min(1 + floor(2q), 3)
//	ethereum     4x2 brick     min(1 + floor(q), 4)
//	solana       3x3 pentagon  min(1 + floor(q/10), 5)
//	binancecoin  3x3 diamond   min(1 + floor(q/2), 5)
//	cardano      4x3 hexagon   min(1 + floor(q/500), 6)
//	dogecoin     1x1 cube      min(4 + floor(2q), 10)
//	shiba-inu    1x1 cube      min(4 + floor(2q), 10)
package catalog

import (
	"math"

	"github.com/matzehuels/coinstack/pkg/shape"
)

// Asset identifiers known to the catalog.
const (
	Bitcoin     = "bitcoin"
	Ethereum    = "ethereum"
	Solana      = "solana"
	BinanceCoin = "binancecoin"
	Cardano     = "cardano"
	Dogecoin    = "dogecoin"
	ShibaInu    = "shiba-inu"
)

// MaxAssets is the number of catalog assets; diversification is measured against it.
const MaxAssets = 7

// Descriptor describes how one Add call is represented on the grid.
type Descriptor struct {
	AssetID  string
	Mask     shape.Mask
	Visual   shape.Visual
	Replicas int
}

// rule is one catalog entry. base + floor(q*scale) replicas, capped at max.
type rule struct {
	mask   shape.Mask
	visual shape.Visual
	base   int
	scale  float64
	max    int
}

var (
	cube = shape.MustParse("#")

	rules = map[string]rule{
		Bitcoin: {
			mask:   shape.Rect(4, 4),
			visual: shape.Visual{Name: "Bitcoin", Glyph: "₿", Fill: "#F7931A", Stroke: "#ff9500"},
			base:   1, scale: 2, max: 3,
		},
		Ethereum: {
			mask:   shape.Rect(4, 2),
			visual: shape.Visual{Name: "Ethereum", Glyph: "Ξ", Fill: "#627EEA", Stroke: "#7c9ff5"},
			base:   1, scale: 1, max: 4,
		},
		Solana: {
			mask:   shape.MustParse(".#.", "###", "###"),
			visual: shape.Visual{Name: "Solana", Glyph: "◎", Fill: "#14F195", Stroke: "#00ff88"},
			base:   1, scale: 0.1, max: 5,
		},
		BinanceCoin: {
			mask:   shape.MustParse(".#.", "###", ".#."),
			visual: shape.Visual{Name: "Binance Coin", Glyph: "◆", Fill: "#F3BA2F", Stroke: "#ffd700"},
			base:   1, scale: 0.5, max: 5,
		},
		Cardano: {
			mask:   shape.MustParse(".##.", "####", ".##."),
			visual: shape.Visual{Name: "Cardano", Glyph: "₳", Fill: "#0033AD", Stroke: "#3399ff"},
			base:   1, scale: 1.0 / 500, max: 6,
		},
		Dogecoin: {
			mask:   cube,
			visual: shape.Visual{Name: "Dogecoin", Glyph: "Ð", Fill: "#C2A633", Stroke: "#FFD700"},
			base:   4, scale: 2, max: 10,
		},
		ShibaInu: {
			mask:   cube,
			visual: shape.Visual{Name: "Shiba Inu", Glyph: "S", Fill: "#FF1493", Stroke: "#ff69b4"},
			base:   4, scale: 2, max: 10,
		},
	}

	// order is the stable listing order used by Assets.
	order = []string{Bitcoin, Ethereum, Solana, BinanceCoin, Cardano, Dogecoin, ShibaInu}

	fallback = rule{
		mask:   shape.Rect(2, 2),
		visual: shape.Visual{Name: "", Glyph: "?", Fill: "#8892B0", Stroke: "#CCD6F6"},
		base:   1, scale: 0, max: 1,
	}
)

// Describe returns the block descriptor for quantity q of assetID.
func Describe(assetID string, q float64) Descriptor {
	r, ok := rules[assetID]
	if !ok {
		r = fallback
		r.visual.Name = assetID
	}
	return Descriptor{
		AssetID:  assetID,
		Mask:     r.mask.Clone(),
		Visual:   r.visual,
		Replicas: r.replicas(q),
	}
}

func (r rule) replicas(q float64) int {
	if !(q > 0) || math.IsInf(q, 0) {
		q = 0
	}
	n := r.base + int(math.Floor(q*r.scale))
	if n > r.max || n < 0 {
		// n < 0 only on int overflow for absurd quantities.
		n = r.max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Known reports whether assetID has a specific shape rule.
func Known(assetID string) bool {
	_, ok := rules[assetID]
	return ok
}

// Assets returns the catalog asset identifiers in a stable order.
func Assets() []string {
	return append([]string(nil), order...)
}

// MaxReplicas returns the replica cap for assetID.
func MaxReplicas(assetID string) int {
	if r, ok := rules[assetID]; ok {
		return r.max
	}
	return fallback.max
}
