package portfolio

import (
	"context"
	"strconv"
	"time"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/observability"
	"github.com/matzehuels/coinstack/pkg/store"
)

// RestoreReport summarizes a restore.
type RestoreReport struct {
	Found    bool // a saved portfolio existed
	Records  int  // records read from the store
	Restored int  // records rebuilt in the engine
	Skipped  int  // malformed or rejected records
	Blocks   int  // live blocks afterwards
}

// Records returns the live portfolio as saveable records, one per Add batch
// with the quantity still alive in that batch. Each record keeps the batch's
// block count and, once every block in it rests on the grid, their positions,
// so a restore rebuilds the layout a Remove or Reorganize left behind. A batch
// with a falling or overflowing block keeps only its count and drops again.
func Records(blocks []block.Block) []store.Record {
	idx := make(map[uint64]int)
	unplaced := make(map[uint64]bool)
	var out []store.Record
	for _, b := range blocks {
		i, ok := idx[b.Batch]
		if !ok {
			idx[b.Batch] = len(out)
			out = append(out, store.Record{AssetID: b.AssetID, Timestamp: b.CreatedAt.UTC()})
			i = len(out) - 1
		}
		out[i].Quantity += b.Quantity
		out[i].Replicas++
		out[i].Blocks = append(out[i].Blocks, store.Position{X: b.X, Y: b.Y})
		if !b.Committed() {
			unplaced[b.Batch] = true
		}
	}
	for batch, i := range idx {
		out[i].Quantity = roundSig(out[i].Quantity)
		if unplaced[batch] {
			out[i].Blocks = nil
		}
	}
	return out
}

// roundSig drops the float noise of summing replica shares so a saved
// quantity replays to the same replica count.
func roundSig(q float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(q, 'g', 12, 64), 64)
	if err != nil {
		return q
	}
	return v
}

// Save writes the live portfolio to the store and returns the record count.
func (s *Service) Save(ctx context.Context) (int, error) {
	records := Records(s.Engine.Blocks())
	data, err := store.Encode(records)
	if err == nil {
		err = s.Store.Set(ctx, s.key, data)
	}
	observability.Store().OnSave(ctx, store.Name(s.Store), len(records), len(data), err)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeStoreUnavailable, err, "save portfolio")
		}
		return 0, err
	}
	s.Logger.Debug("saved portfolio", "records", len(records), "bytes", len(data))
	return len(records), nil
}

// replay rebuilds one record: with its saved layout when it has one,
// otherwise as a fresh Add.
func (s *Service) replay(r store.Record) ([]block.Block, error) {
	if !r.HasLayout() {
		return s.Engine.Add(r.AssetID, r.Quantity)
	}
	var at []block.Point
	if len(r.Blocks) == r.Replicas {
		at = make([]block.Point, len(r.Blocks))
		for i, p := range r.Blocks {
			at[i] = block.Point{X: p.X, Y: p.Y}
		}
	}
	return s.Engine.Place(engine.Layout{
		AssetID:  r.AssetID,
		Quantity: r.Quantity,
		Replicas: r.Replicas,
		At:       at,
		Created:  r.Timestamp,
	})
}

// Restore replaces the live portfolio with the saved one.
//
// The engine is cleared first. A payload that cannot be parsed leaves the
// portfolio empty and returns a CORRUPT_RECORD error; malformed or rejected
// records are skipped and counted. Restored blocks are settled before
// Restore returns.
func (s *Service) Restore(ctx context.Context) (RestoreReport, error) {
	var rep RestoreReport
	start := time.Now()

	data, ok, err := s.Store.Get(ctx, s.key)
	if err != nil {
		observability.Store().OnLoad(ctx, store.Name(s.Store), 0, 0, err)
		return rep, err
	}

	s.Engine.Clear()
	defer s.notify()

	if !ok {
		observability.Store().OnLoad(ctx, store.Name(s.Store), 0, 0, nil)
		return rep, nil
	}
	rep.Found = true

	records, bad, err := store.Decode(data)
	if err != nil {
		s.Logger.Warn("saved portfolio is corrupt, starting empty", "error", err)
		observability.Store().OnLoad(ctx, store.Name(s.Store), 0, 0, err)
		return rep, err
	}
	for _, e := range bad {
		s.Logger.Warn("skipping saved record", "error", e)
	}
	rep.Records = len(records) + len(bad)
	rep.Skipped = len(bad)

	if s.aggregate {
		records = store.Aggregate(records)
	}
	for _, r := range records {
		if _, err := s.replay(r); err != nil {
			s.Logger.Warn("skipping saved record", "asset", r.AssetID, "error", err)
			rep.Skipped++
			continue
		}
		rep.Restored++
	}

	s.Engine.Drain(s.drainTicks)
	rep.Blocks = s.Engine.Len()

	observability.Store().OnLoad(ctx, store.Name(s.Store), rep.Restored, rep.Skipped, nil)
	s.Logger.Info("restored portfolio",
		"records", rep.Restored,
		"skipped", rep.Skipped,
		"blocks", rep.Blocks,
		"duration", time.Since(start).Round(time.Millisecond))
	return rep, nil
}
