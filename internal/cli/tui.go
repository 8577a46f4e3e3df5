package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/coinstack/pkg/block"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/render"
)

var (
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	statusStyle = lipgloss.NewStyle().Foreground(colorGray)
	helpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Board
// =============================================================================

// boardView draws the grid with two terminal columns per cell so blocks keep
// roughly square proportions.
func boardView(snap engine.Snapshot, falling bool) string {
	var sb strings.Builder
	layer := render.Layer(snap, falling)
	for y, row := range layer {
		for _, b := range row {
			if b == nil {
				sb.WriteString(styleEmpty.Render("· "))
				continue
			}
			cell := string(render.Glyph(*b)) + " "
			if b.State == block.Falling {
				sb.WriteString(assetStyle(b.Visual).Faint(true).Render(cell))
			} else {
				sb.WriteString(assetStyle(b.Visual).Render(cell))
			}
		}
		if y < len(layer)-1 {
			sb.WriteByte('\n')
		}
	}

	out := boardStyle.Render(sb.String())
	if n := overflowCount(snap); n > 0 {
		out += "\n" + StyleWarning.Render(fmt.Sprintf("%s pinned above the grid", plural(n, "block")))
	}
	return out
}

func overflowCount(snap engine.Snapshot) int {
	n := 0
	for _, b := range snap.Blocks {
		if b.Overflow {
			n++
		}
	}
	return n
}

// =============================================================================
// Watch Model
// =============================================================================

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchModel animates the portfolio one engine tick per frame.
type watchModel struct {
	svc      *portfolio.Service
	interval time.Duration
	snap     portfolio.Snapshot
	status   string
}

func newWatchModel(svc *portfolio.Service, interval time.Duration) watchModel {
	return watchModel{svc: svc, interval: interval, snap: svc.Snapshot()}
}

func (m watchModel) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			if m.svc.Paused() {
				m.svc.Resume()
				m.status = "resumed"
			} else {
				m.svc.Pause()
				m.status = "paused"
			}
		case "r":
			res := m.svc.Reorganize(context.Background())
			m.status = fmt.Sprintf("reorganized %s", plural(res.Placed, "block"))
		case "d":
			n := m.svc.Drain()
			m.status = fmt.Sprintf("settled in %d ticks", n)
		}
		m.snap = m.svc.Snapshot()
		return m, nil

	case tickMsg:
		if res, ran := m.svc.Step(); ran && len(res.Overflow) > 0 {
			m.status = fmt.Sprintf("%s did not fit", plural(len(res.Overflow), "block"))
		}
		m.snap = m.svc.Snapshot()
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(appName))
	b.WriteString("  ")
	met := m.snap.Metrics
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  %s  %d falling  tick %d",
		formatUSD(met.TotalValue), plural(met.BlockCount, "block"), m.snap.Engine.Falling(), m.snap.Engine.Tick)))
	b.WriteString("  ")
	b.WriteString(riskStyle(met.RiskLevel).Render(string(met.RiskLevel) + " risk"))
	b.WriteString("\n")

	b.WriteString(boardView(m.snap.Engine, true))
	b.WriteString("\n")

	state := "running"
	if m.snap.Paused {
		state = "paused"
	}
	if m.status != "" {
		state += " · " + m.status
	}
	b.WriteString(statusStyle.Render(state))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("p pause  r reorganize  d drop all  q quit"))
	return b.String()
}

// =============================================================================
// Watch Command
// =============================================================================

func (c *CLI) watchCommand() *cobra.Command {
	var (
		adds   []string
		replay bool
		tickMS int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Animate blocks falling into the grid",
		Long: `Open a terminal view of the grid and advance the simulation one tick per
frame. Holdings passed with --add are spawned on start; --replay drops the
whole saved portfolio again. The portfolio is settled and saved on exit.`,
		Example: `  coinstack watch --add bitcoin=0.5 --add dogecoin=2
  coinstack watch --replay`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			holdings, err := parseHoldings(adds)
			if err != nil {
				return err
			}

			svc, cfg, closeStore, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if replay {
				records := portfolio.Records(svc.Engine.Blocks())
				svc.Engine.Clear()
				for _, r := range records {
					if _, err := svc.Add(ctx, r.AssetID, r.Quantity); err != nil {
						c.Logger.Warn("skipping record", "asset", r.AssetID, "error", err)
					}
				}
			}
			for _, h := range holdings {
				if _, err := svc.Add(ctx, h.AssetID, h.Quantity); err != nil {
					return err
				}
			}

			interval := cfg.TickInterval()
			if tickMS > 0 {
				interval = time.Duration(tickMS) * time.Millisecond
			}

			p := tea.NewProgram(newWatchModel(svc, interval), tea.WithContext(ctx), tea.WithAltScreen())
			_, runErr := p.Run()

			svc.Drain()
			n, err := svc.Save(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			c.Logger.Debug("saved on exit", "records", n)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return runErr
		},
	}
	cmd.Flags().StringArrayVar(&adds, "add", nil, "holding to spawn on start, as asset=quantity (repeatable)")
	cmd.Flags().BoolVar(&replay, "replay", false, "drop the saved portfolio again from the top")
	cmd.Flags().IntVar(&tickMS, "tick", 0, "milliseconds per tick (default from config)")
	return cmd
}

// holding is one asset=quantity flag value.
type holding struct {
	AssetID  string
	Quantity float64
}

func parseHoldings(values []string) ([]holding, error) {
	out := make([]holding, 0, len(values))
	for _, v := range values {
		asset, qty, ok := strings.Cut(v, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "holding %q must look like asset=quantity", v)
		}
		if err := errors.ValidateAssetID(asset); err != nil {
			return nil, err
		}
		q, err := parseQuantity(qty)
		if err != nil {
			return nil, err
		}
		out = append(out, holding{AssetID: asset, Quantity: q})
	}
	return out, nil
}
