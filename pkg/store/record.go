package store

import (
	_ "embed"
	"encoding/json"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/matzehuels/coinstack/pkg/errors"
)

// Record is one saved holding.
//
// Replicas and Blocks are optional. When present they pin the saved layout:
// how many blocks the holding still has and where each one rests. Records
// without them are replayed as a fresh Add.
type Record struct {
	AssetID   string     `json:"asset_id"`
	Quantity  float64    `json:"quantity"`
	Timestamp time.Time  `json:"timestamp"`
	Replicas  int        `json:"replicas,omitempty"`
	Blocks    []Position `json:"blocks,omitempty"`
}

// Position is the saved mask origin of one block.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// HasLayout reports whether r carries a replica count to rebuild.
func (r Record) HasLayout() bool { return r.Replicas > 0 }

//go:embed record.schema.json
var recordSchemaJSON string

var recordSchema = jsonschema.MustCompileString("record.schema.json", recordSchemaJSON)

// Encode serializes records as a JSON array.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode records")
	}
	return data, nil
}

// Decode parses a saved portfolio.
//
// A payload that is not a JSON array fails as a whole with CORRUPT_RECORD.
// Individual entries that fail the record schema or validation are skipped;
// one error per skipped entry is returned alongside the good records.
func Decode(data []byte) ([]Record, []error, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeCorruptRecord, err, "saved portfolio is not a record list")
	}

	records := make([]Record, 0, len(raw))
	var skipped []error
	for i, entry := range raw {
		r, err := decodeRecord(entry)
		if err != nil {
			skipped = append(skipped, errors.Wrap(errors.ErrCodeCorruptRecord, err, "record %d", i))
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}

func decodeRecord(entry json.RawMessage) (Record, error) {
	var v any
	if err := json.Unmarshal(entry, &v); err != nil {
		return Record{}, err
	}
	if err := recordSchema.Validate(v); err != nil {
		return Record{}, err
	}

	var r Record
	if err := json.Unmarshal(entry, &r); err != nil {
		return Record{}, err
	}
	if err := errors.ValidateAssetID(r.AssetID); err != nil {
		return Record{}, err
	}
	if err := errors.ValidateQuantity(r.Quantity); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Aggregate merges records of the same asset, keeping first-seen order and
// the latest timestamp. A merged record loses its layout and is replayed as
// one Add of the summed quantity.
func Aggregate(records []Record) []Record {
	idx := make(map[string]int)
	var out []Record
	for _, r := range records {
		i, ok := idx[r.AssetID]
		if !ok {
			idx[r.AssetID] = len(out)
			out = append(out, r)
			continue
		}
		out[i].Quantity += r.Quantity
		out[i].Replicas = 0
		out[i].Blocks = nil
		if r.Timestamp.After(out[i].Timestamp) {
			out[i].Timestamp = r.Timestamp
		}
	}
	return out
}
