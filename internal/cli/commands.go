package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/export"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/render"
)

// =============================================================================
// Intents
// =============================================================================

func (c *CLI) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <asset> <quantity>",
		Short: "Add a holding as falling blocks",
		Long: `Add a holding to the portfolio. The asset's catalog shape is spawned above
the grid, once per replica, and the blocks are settled before the portfolio is
saved. Unknown assets are accepted and drawn as a single 2x2 block.`,
		Example: `  coinstack add bitcoin 0.5
  coinstack add dogecoin 1500`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuantity(args[1])
			if err != nil {
				return err
			}

			var added []block.Block
			svc, err := c.mutate(cmd.Context(), func(svc *portfolio.Service) error {
				var err error
				added, err = svc.Add(cmd.Context(), args[0], q)
				return err
			})
			if err != nil {
				return err
			}

			printSuccess(c.Out, "Added %s %s as %s", strconv.FormatFloat(q, 'g', -1, 64), args[0], plural(len(added), "block"))
			live := svc.Engine.Blocks()
			for _, b := range added {
				if i := blockIndex(live, b.ID); i >= 0 {
					printDetail(c.Out, "#%d  %s", i+1, describePlacement(live[i]))
				}
			}
			printNextStep(c.Out, "View the grid", appName+" show")
			return nil
		},
	}
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <block>",
		Short: "Remove one block and compact the grid",
		Long: `Remove one block by its number (as listed by "coinstack block") or its id,
then re-place the remaining blocks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed block.Block
			_, err := c.mutate(cmd.Context(), func(svc *portfolio.Service) error {
				var err error
				removed, err = svc.Remove(cmd.Context(), resolveBlock(svc, args[0]))
				return err
			})
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Removed %s block %s", removed.AssetID, removed.ID)
			printDetail(c.Out, "quantity %s", strconv.FormatFloat(removed.Quantity, 'g', -1, 64))
			return nil
		},
	}
}

func (c *CLI) reorganizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reorganize",
		Aliases: []string{"compact"},
		Short:   "Re-place every block with a leftmost fit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res engine.ReorganizeResult
			_, err := c.mutate(cmd.Context(), func(svc *portfolio.Service) error {
				res = svc.Reorganize(cmd.Context())
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Reorganized %s", plural(res.Placed, "block"))
			if len(res.Overflow) > 0 {
				printWarning(c.Out, "%s did not fit and are pinned above the grid", plural(len(res.Overflow), "block"))
			}
			return nil
		},
	}
}

func (c *CLI) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every block and delete the saved portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeStore, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			n := svc.Engine.Len()
			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			printSuccess(c.Out, "Cleared %s", plural(n, "block"))
			return nil
		},
	}
}

// =============================================================================
// Presentation
// =============================================================================

const (
	formatText  = "text"
	formatPlain = "plain"
	formatJSON  = "json"
)

func (c *CLI) showCommand() *cobra.Command {
	var (
		format string
		cells  bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the grid and portfolio metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			switch format {
			case formatText:
				fmt.Fprintln(c.Out, boardView(snap.Engine, true))
				fmt.Fprintln(c.Out)
				printMetrics(c.Out, snap.Metrics)
			case formatPlain:
				fmt.Fprint(c.Out, render.RenderText(snap.Engine, render.WithTextBorder(), render.WithTextFalling()))
			case formatJSON:
				var opts []render.JSONOption
				if cells {
					opts = append(opts, render.WithJSONCells())
				}
				data, err := render.RenderJSON(snap, opts...)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Out, string(data))
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want text, plain or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, plain, json")
	cmd.Flags().BoolVar(&cells, "cells", false, "include the occupancy matrix (json)")
	return cmd
}

func (c *CLI) holdingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List holdings with value and 24h change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.Holdings) == 0 {
				printInfo(c.Out, "Portfolio is empty")
				printNextStep(c.Out, "Add a holding", appName+" add bitcoin 0.5")
				return nil
			}
			fmt.Fprintln(c.Out, holdingsTable(snap.Holdings))
			fmt.Fprintln(c.Out)
			printMetrics(c.Out, snap.Metrics)
			return nil
		},
	}
}

// holdingsTable renders holdings as a bordered table.
func holdingsTable(holdings []ledger.Holding) string {
	rows := make([][]string, len(holdings))
	for i, h := range holdings {
		price, change := "n/a", "n/a"
		if h.Priced {
			price, change = formatUSD(h.Price), fmt.Sprintf("%+.2f%%", h.Change24h)
		}
		rows[i] = []string{
			catalog.Describe(h.AssetID, 1).Visual.Glyph,
			h.AssetID,
			strconv.FormatFloat(h.Quantity, 'g', 10, 64),
			strconv.Itoa(h.Blocks),
			price,
			change,
			formatUSD(h.Value),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Asset", "Quantity", "Blocks", "Price", "24h", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(holdings) {
				return cell
			}
			h := holdings[row]
			switch col {
			case 0:
				return assetStyle(catalog.Describe(h.AssetID, 1).Visual).Padding(0, 1)
			case 5:
				if !h.Priced {
					return cell.Foreground(colorDim)
				}
				if h.Change24h < 0 {
					return cell.Foreground(colorRed)
				}
				return cell.Foreground(colorGreen)
			case 6:
				return cell.Foreground(colorWhite).Bold(true)
			}
			return cell
		})
	return t.Render()
}

func (c *CLI) blockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "block [block]",
		Short: "List blocks, or show one block and its valuation",
		Long: `Without arguments, list every block in creation order. Block numbers are
stable across runs as long as the portfolio is unchanged; ids are not, because
the saved portfolio is replayed on every start.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeStore, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if len(args) == 0 {
				c.listBlocks(svc)
				return nil
			}

			b, d, err := svc.Block(resolveBlock(svc, args[0]))
			if err != nil {
				return err
			}
			name := d.Name
			if name == "" {
				name = d.AssetID
			}
			fmt.Fprintln(c.Out, StyleTitle.Render(name)+" "+assetStyle(b.Visual).Render(" "+b.Visual.Glyph+" "))
			printKeyValue(c.Out, "ID", b.ID)
			printKeyValue(c.Out, "Asset", b.AssetID)
			printKeyValue(c.Out, "Position", describePlacement(b))
			printKeyValue(c.Out, "Size", fmt.Sprintf("%dx%d", b.Width(), b.Height()))
			printKeyValue(c.Out, "Quantity", strconv.FormatFloat(d.Quantity, 'g', 10, 64))
			printKeyValue(c.Out, "Price", formatUSD(d.Price))
			printKeyValue(c.Out, "24h", formatChange(d.Change24h))
			printKeyValue(c.Out, "Value", formatUSD(d.Value))
			printKeyValue(c.Out, "Share", fmt.Sprintf("%.1f%%", d.Share))
			printKeyValue(c.Out, "Created", b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func (c *CLI) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List known assets, their shapes and prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			svc, err := c.newService(cfg, nil)
			if err != nil {
				return err
			}

			for _, id := range catalog.Assets() {
				d := catalog.Describe(id, 0)
				price := StyleDim.Render("no quote")
				if q, ok := svc.Prices.Quote(id); ok {
					price = formatUSD(q.USD) + " " + formatChange(q.Change24h)
				}
				fmt.Fprintf(c.Out, "%s %-12s %s  up to %2d blocks  %s\n",
					assetStyle(d.Visual).Render(" "+d.Visual.Glyph+" "),
					id,
					StyleDim.Render(fmt.Sprintf("%dx%d", d.Mask.Width(), d.Mask.Height())),
					catalog.MaxReplicas(id),
					price)
				for _, line := range d.Mask.Rows() {
					fmt.Fprintln(c.Out, "    "+StyleDim.Render(line))
				}
			}

			// Quotes for assets outside the catalog, e.g. from a prices file.
			var extra []string
			for _, id := range svc.Prices.Assets() {
				if !catalog.Known(id) {
					extra = append(extra, id)
				}
			}
			sort.Strings(extra)
			for _, id := range extra {
				q, _ := svc.Prices.Quote(id)
				fmt.Fprintf(c.Out, "%s %-12s %s  %s\n", " ? ", id, StyleDim.Render("2x2"), formatUSD(q.USD))
			}
			return nil
		},
	}
}

func (c *CLI) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the grid and holdings to xlsx, json, svg or txt",
		Long: `Write the current portfolio to a file. The format follows the extension:
  .xlsx  workbook with holdings, blocks and a painted grid
  .json  snapshot document including the occupancy matrix
  .svg   vector image of the grid
  .txt   glyph grid`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := export.FormatFor(args[0]); err != nil {
				return err
			}
			snap, err := c.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			prog := newProgress(c.Logger)
			if err := export.Export(snap, args[0]); err != nil {
				return err
			}
			prog.done("Exported " + plural(len(snap.Engine.Blocks), "block"))
			printSuccess(c.Out, "Exported portfolio")
			printFile(c.Out, args[0])
			return nil
		},
	}
}

// =============================================================================
// Helpers
// =============================================================================

// snapshot restores the saved portfolio and returns its state.
func (c *CLI) snapshot(ctx context.Context) (portfolio.Snapshot, error) {
	svc, _, closeStore, err := c.openService(ctx)
	if err != nil {
		return portfolio.Snapshot{}, err
	}
	defer closeStore()
	return svc.Snapshot(), nil
}

// listBlocks prints one line per block in creation order.
func (c *CLI) listBlocks(svc *portfolio.Service) {
	blocks := svc.Engine.Blocks()
	if len(blocks) == 0 {
		printInfo(c.Out, "Portfolio is empty")
		return
	}
	for i, b := range blocks {
		fmt.Fprintf(c.Out, "%3d  %s %-12s %-24s %s\n",
			i+1,
			assetStyle(b.Visual).Render(" "+b.Visual.Glyph+" "),
			b.AssetID,
			describePlacement(b),
			StyleDim.Render(b.ID))
	}
}

// resolveBlock maps a 1-based block number to its id. Anything else is
// returned unchanged and treated as an id.
func resolveBlock(svc *portfolio.Service, ref string) string {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref
	}
	blocks := svc.Engine.Blocks()
	if n < 1 || n > len(blocks) {
		return ref
	}
	return blocks[n-1].ID
}

func blockIndex(blocks []block.Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func parseQuantity(s string) (float64, error) {
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidQuantity, "quantity %q is not a number", s)
	}
	if err := errors.ValidateQuantity(q); err != nil {
		return 0, err
	}
	return q, nil
}

func describePlacement(b block.Block) string {
	switch {
	case b.Overflow:
		return "pinned above the grid"
	case b.State == block.Falling:
		return fmt.Sprintf("falling at (%d, %d)", b.X, b.Y)
	default:
		return fmt.Sprintf("(%d, %d)", b.X, b.Y)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
