package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/portfolio"
)

// Sheet names of the exported workbook.
const (
	SheetHoldings = "Holdings"
	SheetBlocks   = "Blocks"
	SheetGrid     = "Grid"
)

var (
	holdingsHeader = []any{"Asset", "Name", "Quantity", "Blocks", "Price (USD)", "24h Change (%)", "Value (USD)"}
	blocksHeader   = []any{"ID", "Asset", "Quantity", "X", "Y", "Width", "Height", "State", "Overflow"}
)

// WriteXLSX writes the snapshot as a workbook.
func WriteXLSX(snap portfolio.Snapshot, w io.Writer) error {
	f, err := Workbook(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the workbook for snap. The caller closes it.
func Workbook(snap portfolio.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	x := &xlsxWriter{f: f, fills: make(map[string]int)}

	if err := f.SetSheetName(f.GetSheetName(0), SheetHoldings); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetBlocks, SheetGrid} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	steps := []func(portfolio.Snapshot) error{x.holdings, x.blocks, x.grid}
	for _, step := range steps {
		if err := step(snap); err != nil {
			f.Close()
			return nil, fmt.Errorf("build workbook: %w", err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

type xlsxWriter struct {
	f      *excelize.File
	header int
	fills  map[string]int // fill color -> style id
}

func (x *xlsxWriter) headerStyle() (int, error) {
	if x.header != 0 {
		return x.header, nil
	}
	id, err := x.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
	})
	x.header = id
	return id, err
}

func (x *xlsxWriter) fillStyle(color string) (int, error) {
	if id, ok := x.fills[color]; ok {
		return id, nil
	}
	id, err := x.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, err
	}
	x.fills[color] = id
	return id, nil
}

func (x *xlsxWriter) writeHeader(sheet string, header []any) error {
	if err := x.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := x.headerStyle()
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := x.f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return x.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (x *xlsxWriter) holdings(snap portfolio.Snapshot) error {
	if err := x.writeHeader(SheetHoldings, holdingsHeader); err != nil {
		return err
	}
	row := 2
	for _, h := range snap.Holdings {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{h.AssetID, h.Name, h.Quantity, h.Blocks, h.Price, h.Change24h, h.Value}
		if err := x.f.SetSheetRow(SheetHoldings, cell, &values); err != nil {
			return err
		}
		row++
	}

	row++
	m := snap.Metrics
	summary := [][]any{
		{"Total value (USD)", m.TotalValue},
		{"Assets", m.AssetCount},
		{"Blocks", m.BlockCount},
		{"Diversification (%)", m.DiversificationPct},
		{"Risk score", m.RiskScore},
		{"Risk level", string(m.RiskLevel)},
	}
	for _, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := x.f.SetSheetRow(SheetHoldings, cell, &values); err != nil {
			return err
		}
		row++
	}
	return x.f.SetColWidth(SheetHoldings, "A", "G", 18)
}

func (x *xlsxWriter) blocks(snap portfolio.Snapshot) error {
	if err := x.writeHeader(SheetBlocks, blocksHeader); err != nil {
		return err
	}
	for i, b := range snap.Engine.Blocks {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{b.ID, b.AssetID, b.Quantity, b.X, b.Y, b.Width(), b.Height(), b.State.String(), b.Overflow}
		if err := x.f.SetSheetRow(SheetBlocks, cell, &values); err != nil {
			return err
		}
		if err := x.paint(SheetBlocks, 2, row, b); err != nil {
			return err
		}
	}
	if err := x.f.SetColWidth(SheetBlocks, "A", "A", 38); err != nil {
		return err
	}
	return x.f.SetColWidth(SheetBlocks, "B", "I", 12)
}

// grid paints one spreadsheet cell per committed grid cell in the owner's
// fill color, labelled with the asset glyph.
func (x *xlsxWriter) grid(snap portfolio.Snapshot) error {
	owners := make(map[string]block.Block, len(snap.Engine.Blocks))
	for _, b := range snap.Engine.Blocks {
		owners[b.ID] = b
	}
	for y, row := range snap.Engine.Cells {
		for cx, id := range row {
			if id == "" {
				continue
			}
			b, ok := owners[id]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(cx+1, y+1)
			if err != nil {
				return err
			}
			if err := x.f.SetCellValue(SheetGrid, cell, b.Visual.Glyph); err != nil {
				return err
			}
			if err := x.paint(SheetGrid, cx+1, y+1, b); err != nil {
				return err
			}
		}
	}
	if snap.Engine.Width == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(snap.Engine.Width)
	if err != nil {
		return err
	}
	return x.f.SetColWidth(SheetGrid, "A", last, 3)
}

func (x *xlsxWriter) paint(sheet string, col, row int, b block.Block) error {
	if b.Visual.Fill == "" {
		return nil
	}
	style, err := x.fillStyle(b.Visual.Fill)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return x.f.SetCellStyle(sheet, cell, cell, style)
}
