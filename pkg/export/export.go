// Package export writes portfolio snapshots to files and reads saved
// portfolios back.
//
// # Formats
//
// [Export] picks the format from the file extension:
//
//   - .xlsx: a workbook with Holdings, Blocks and Grid sheets
//   - .json: the render document including occupancy rows
//   - .svg:  a picture of the grid
//   - .txt:  the text grid with a border
//
// # Import
//
// [ImportRecords] reads a JSON array of {asset_id, quantity, timestamp}
// records, the same format the stores persist, so a portfolio exported by
// "coinstack store export" can be replayed into another instance.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/render"
	"github.com/matzehuels/coinstack/pkg/store"
)

// Format is an output format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatText Format = "txt"
)

// Formats lists the supported formats.
var Formats = []Format{FormatXLSX, FormatJSON, FormatSVG, FormatText}

// FormatFor returns the format matching the extension of path.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if string(f) == ext {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported export format %q (want one of xlsx, json, svg, txt)", filepath.Ext(path))
}

// Write encodes snap in format f to w.
func Write(snap portfolio.Snapshot, f Format, w io.Writer) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(snap, w)
	case FormatJSON:
		data, err := render.RenderJSON(snap, render.WithJSONCells())
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatSVG:
		_, err := w.Write(render.RenderSVG(snap.Engine, render.WithSVGGlyphs()))
		return err
	case FormatText:
		_, err := io.WriteString(w, render.RenderText(snap.Engine, render.WithTextBorder()))
		return err
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported export format %q", f)
}

// Export writes snap to path in the format implied by its extension.
func Export(snap portfolio.Snapshot, path string) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(snap, f, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteRecords writes the saved-portfolio form of records to w.
func WriteRecords(records []store.Record, w io.Writer) error {
	data, err := store.Encode(records)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadRecords decodes a saved portfolio. Malformed entries are returned as
// skipped errors; a payload that is not a record array is an error.
func ReadRecords(r io.Reader) ([]store.Record, []error, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	return store.Decode(data)
}

// ImportRecords reads a saved portfolio from path.
func ImportRecords(path string) ([]store.Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRecords(f)
}
