// Package ledger aggregates holdings and portfolio metrics.
//
// The ledger is stateless: every call recomputes from the positions it is
// given, so it is idempotent and can never drift from the engine's block set.
// Missing prices count as zero value and zero change; the asset still counts
// toward diversification.
package ledger

import (
	"math"
	"sort"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/prices"
)

// Risk thresholds on the value-weighted mean absolute 24h change, in percent.
const (
	LowRiskBelow    = 2.0
	MediumRiskBelow = 4.0
)

// RiskLevel classifies a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Classify maps a score to its level.
func Classify(score float64) RiskLevel {
	switch {
	case score < LowRiskBelow:
		return RiskLow
	case score < MediumRiskBelow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Position is the ledger's view of one block.
type Position struct {
	AssetID  string
	Quantity float64
}

// Positions converts blocks to positions.
func Positions(blocks []block.Block) []Position {
	out := make([]Position, len(blocks))
	for i, b := range blocks {
		out[i] = Position{AssetID: b.AssetID, Quantity: b.Quantity}
	}
	return out
}

// Metrics are the aggregate portfolio figures.
type Metrics struct {
	TotalValue         float64   `json:"total_value"`
	AssetCount         int       `json:"asset_count"`
	BlockCount         int       `json:"block_count"`
	DiversificationPct float64   `json:"diversification_pct"`
	RiskScore          float64   `json:"risk_score"`
	RiskLevel          RiskLevel `json:"risk_level"`
}

// Holding is the total quantity and value of one asset.
type Holding struct {
	AssetID   string  `json:"asset_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Blocks    int     `json:"blocks"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Value     float64 `json:"value"`
	Priced    bool    `json:"priced"`
}

// Recompute derives metrics from positions. src may be nil.
func Recompute(positions []Position, src prices.Source) Metrics {
	m := Metrics{BlockCount: len(positions), RiskLevel: RiskLow}
	if len(positions) == 0 {
		return m
	}

	assets := make(map[string]struct{})
	weighted := 0.0
	for _, p := range positions {
		assets[p.AssetID] = struct{}{}
		q := quote(src, p.AssetID)
		v := p.Quantity * q.USD
		m.TotalValue += v
		weighted += math.Abs(q.Change24h) * v
	}

	m.AssetCount = len(assets)
	m.DiversificationPct = math.Min(float64(m.AssetCount)/catalog.MaxAssets*100, 100)
	if m.TotalValue > 0 {
		m.RiskScore = weighted / m.TotalValue
	}
	m.RiskLevel = Classify(m.RiskScore)
	return m
}

// Holdings sums positions per asset, ordered by value then asset id.
func Holdings(positions []Position, src prices.Source) []Holding {
	idx := make(map[string]int)
	var out []Holding
	for _, p := range positions {
		i, ok := idx[p.AssetID]
		if !ok {
			i = len(out)
			idx[p.AssetID] = i
			h := Holding{AssetID: p.AssetID, Name: catalog.Describe(p.AssetID, 1).Visual.Name}
			if src != nil {
				if q, ok := src.Quote(p.AssetID); ok {
					h.Price, h.Change24h, h.Priced = q.USD, q.Change24h, true
				}
			}
			out = append(out, h)
		}
		out[i].Quantity += p.Quantity
		out[i].Blocks++
	}
	for i := range out {
		out[i].Value = out[i].Quantity * out[i].Price
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Value != out[b].Value {
			return out[a].Value > out[b].Value
		}
		return out[a].AssetID < out[b].AssetID
	})
	return out
}

// Detail is the valuation of a single block.
type Detail struct {
	BlockID   string  `json:"block_id"`
	AssetID   string  `json:"asset_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Value     float64 `json:"value"`
	Share     float64 `json:"share_pct"` // of the portfolio total value
}

// BlockDetail values b against src; total is the portfolio value used for
// Share.
func BlockDetail(b block.Block, src prices.Source, total float64) Detail {
	q := quote(src, b.AssetID)
	d := Detail{
		BlockID:   b.ID,
		AssetID:   b.AssetID,
		Name:      b.Visual.Name,
		Quantity:  b.Quantity,
		Price:     q.USD,
		Change24h: q.Change24h,
		Value:     b.Quantity * q.USD,
	}
	if total > 0 {
		d.Share = d.Value / total * 100
	}
	return d
}

func quote(src prices.Source, assetID string) prices.Quote {
	if src == nil {
		return prices.Quote{}
	}
	q, _ := src.Quote(assetID)
	return q
}
