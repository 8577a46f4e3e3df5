package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/shape"
)

func repeat(asset string, q float64, n int) []Position {
	out := make([]Position, n)
	for i := range out {
		out[i] = Position{AssetID: asset, Quantity: q}
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLow},
		{1.99, RiskLow},
		{2, RiskMedium},
		{3.99, RiskMedium},
		{4, RiskHigh},
		{25, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestRecomputeEmpty(t *testing.T) {
	m := Recompute(nil, prices.NewTable(prices.Fallback()))
	assert.Equal(t, Metrics{RiskLevel: RiskLow}, m)
}

func TestRecomputeDogecoin(t *testing.T) {
	m := Recompute(repeat(catalog.Dogecoin, 0.1, 5), prices.NewTable(prices.Fallback()))

	assert.InDelta(t, 0.04, m.TotalValue, 1e-12)
	assert.Equal(t, 1, m.AssetCount)
	assert.Equal(t, 5, m.BlockCount)
	assert.InDelta(t, 100.0/7, m.DiversificationPct, 1e-9)
	assert.InDelta(t, 2.1, m.RiskScore, 1e-9)
	assert.Equal(t, RiskMedium, m.RiskLevel)
}

func TestRecomputeWeightsRiskByValue(t *testing.T) {
	src := prices.NewTable(map[string]prices.Quote{
		"a": {USD: 100, Change24h: 1},
		"b": {USD: 100, Change24h: -10},
	})
	// 300 of a at 1%, 100 of b at 10% -> (300*1 + 100*10) / 400
	pos := []Position{{"a", 2}, {"a", 1}, {"b", 1}}
	m := Recompute(pos, src)

	assert.InDelta(t, 400, m.TotalValue, 1e-9)
	assert.InDelta(t, 3.25, m.RiskScore, 1e-9)
	assert.Equal(t, RiskMedium, m.RiskLevel)
	assert.Equal(t, 2, m.AssetCount)
}

func TestRecomputeMissingPrice(t *testing.T) {
	src := prices.NewTable(map[string]prices.Quote{catalog.Bitcoin: {USD: 10, Change24h: 5}})
	pos := []Position{{catalog.Bitcoin, 1}, {"unpriced", 1000}}

	m := Recompute(pos, src)
	assert.InDelta(t, 10, m.TotalValue, 1e-9)
	assert.Equal(t, 2, m.AssetCount, "unpriced assets still diversify")
	assert.InDelta(t, 5, m.RiskScore, 1e-9)
	assert.Equal(t, RiskHigh, m.RiskLevel)

	m = Recompute(pos, nil)
	assert.Zero(t, m.TotalValue)
	assert.Zero(t, m.RiskScore)
	assert.Equal(t, RiskLow, m.RiskLevel)
}

func TestDiversificationCapped(t *testing.T) {
	var pos []Position
	for _, id := range append(catalog.Assets(), "x", "y") {
		pos = append(pos, Position{id, 1})
	}
	m := Recompute(pos, nil)
	assert.Equal(t, 9, m.AssetCount)
	assert.Equal(t, 100.0, m.DiversificationPct)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	src := prices.NewTable(prices.Fallback())
	pos := append(repeat(catalog.Bitcoin, 1.0/3, 3), repeat(catalog.Solana, 4, 1)...)
	assert.Equal(t, Recompute(pos, src), Recompute(pos, src))
}

func TestHoldings(t *testing.T) {
	src := prices.NewTable(prices.Fallback())
	pos := append(repeat(catalog.Dogecoin, 0.1, 5), repeat(catalog.Bitcoin, 0.5, 2)...)
	pos = append(pos, Position{"pepe", 7})

	hs := Holdings(pos, src)
	require.Len(t, hs, 3)

	assert.Equal(t, catalog.Bitcoin, hs[0].AssetID)
	assert.Equal(t, "Bitcoin", hs[0].Name)
	assert.Equal(t, 2, hs[0].Blocks)
	assert.InDelta(t, 1.0, hs[0].Quantity, 1e-12)
	assert.InDelta(t, 45000, hs[0].Value, 1e-6)
	assert.True(t, hs[0].Priced)

	assert.Equal(t, catalog.Dogecoin, hs[1].AssetID)
	assert.InDelta(t, 0.5, hs[1].Quantity, 1e-12)

	assert.Equal(t, "pepe", hs[2].AssetID)
	assert.Equal(t, "pepe", hs[2].Name)
	assert.False(t, hs[2].Priced)
	assert.Zero(t, hs[2].Value)
}

func TestBlockDetail(t *testing.T) {
	src := prices.NewTable(prices.Fallback())
	b := block.Block{
		ID:       "b1",
		AssetID:  catalog.Ethereum,
		Quantity: 2,
		Mask:     shape.Rect(4, 2),
		Visual:   catalog.Describe(catalog.Ethereum, 2).Visual,
	}

	d := BlockDetail(b, src, 10000)
	assert.Equal(t, "Ethereum", d.Name)
	assert.InDelta(t, 5000, d.Value, 1e-9)
	assert.InDelta(t, 50, d.Share, 1e-9)
	assert.Equal(t, 3.1, d.Change24h)

	assert.Zero(t, BlockDetail(b, src, 0).Share)
}

func TestPositions(t *testing.T) {
	blocks := []block.Block{{AssetID: "a", Quantity: 1}, {AssetID: "b", Quantity: 2}}
	assert.Equal(t, []Position{{"a", 1}, {"b", 2}}, Positions(blocks))
}
