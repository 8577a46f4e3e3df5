// Package prices provides the market data the ledger values holdings with.
//
// Prices are never fetched here. An external fetcher (or the user) hands them
// in through [Table.Set], [Table.Replace] or a CoinGecko-style JSON document
// read by [LoadFile] / [Decode]:
//
//	{"bitcoin": {"usd": 45000, "usd_24h_change": 2.5}}
//
// A missing quote is not an error; callers treat it as zero value and zero
// change.
package prices

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/errors"
)

// Quote is the price of one unit and its 24h change in percent.
type Quote struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}

// Source looks up quotes by asset id.
type Source interface {
	Quote(assetID string) (Quote, bool)
}

// Table is an in-memory Source safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

var _ Source = (*Table)(nil)

// NewTable creates a table holding a copy of quotes.
func NewTable(quotes map[string]Quote) *Table {
	t := &Table{quotes: make(map[string]Quote, len(quotes))}
	for id, q := range quotes {
		t.quotes[id] = q
	}
	return t
}

// Quote implements Source.
func (t *Table) Quote(assetID string) (Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.quotes[assetID]
	return q, ok
}

// Set stores one quote.
func (t *Table) Set(assetID string, q Quote) error {
	if err := errors.ValidateAssetID(assetID); err != nil {
		return err
	}
	if err := validate(q); err != nil {
		return fmt.Errorf("%s: %w", assetID, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quotes == nil {
		t.quotes = make(map[string]Quote)
	}
	t.quotes[assetID] = q
	return nil
}

// Replace swaps the whole table for quotes.
func (t *Table) Replace(quotes map[string]Quote) {
	next := make(map[string]Quote, len(quotes))
	for id, q := range quotes {
		next[id] = q
	}
	t.mu.Lock()
	t.quotes = next
	t.mu.Unlock()
}

// Merge overlays quotes onto the table, keeping assets not mentioned.
func (t *Table) Merge(quotes map[string]Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quotes == nil {
		t.quotes = make(map[string]Quote, len(quotes))
	}
	for id, q := range quotes {
		t.quotes[id] = q
	}
}

// All returns a copy of the table.
func (t *Table) All() map[string]Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Quote, len(t.quotes))
	for id, q := range t.quotes {
		out[id] = q
	}
	return out
}

// Assets returns the quoted asset ids sorted.
func (t *Table) Assets() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.quotes))
	for id := range t.quotes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fallback returns the built-in quotes used when no market data is available.
func Fallback() map[string]Quote {
	return map[string]Quote{
		catalog.Bitcoin:     {USD: 45000, Change24h: 2.5},
		catalog.Ethereum:    {USD: 2500, Change24h: 3.1},
		catalog.Solana:      {USD: 100, Change24h: -1.2},
		catalog.BinanceCoin: {USD: 300, Change24h: 1.8},
		catalog.Cardano:     {USD: 0.5, Change24h: 0.5},
		catalog.Dogecoin:    {USD: 0.08, Change24h: -2.1},
		catalog.ShibaInu:    {USD: 0.000009, Change24h: 5.3},
	}
}

// Decode reads a CoinGecko-style price document. Entries for malformed asset
// ids or non-finite numbers are rejected as a whole.
func Decode(r io.Reader) (map[string]Quote, error) {
	var doc map[string]Quote
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode prices")
	}
	for id, q := range doc {
		if err := errors.ValidateAssetID(id); err != nil {
			return nil, err
		}
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	}
	return doc, nil
}

// LoadFile reads a price document from path.
func LoadFile(path string) (map[string]Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func validate(q Quote) error {
	if math.IsNaN(q.USD) || math.IsInf(q.USD, 0) || q.USD < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "price must be a finite non-negative number")
	}
	if math.IsNaN(q.Change24h) || math.IsInf(q.Change24h, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "24h change must be a finite number")
	}
	return nil
}
