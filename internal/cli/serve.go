package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/coinstack/pkg/observability/metrics"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr         string
		pricesReload time.Duration
		paused       bool
		noMetrics    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation behind an HTTP and websocket API",
		Long: `Restore the saved portfolio, run the simulation clock and serve it over HTTP.
Snapshots are pushed to websocket clients on /ws after every change. The
portfolio is settled and saved when the server stops. Engine and store
counters are exported for Prometheus on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !noMetrics {
				c.metrics = metrics.New()
			}
			svc, cfg, closeStore, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			if paused {
				svc.Pause()
			}

			opts := []server.Option{server.WithLogger(c.Logger)}
			if c.metrics != nil {
				opts = append(opts, server.WithMetrics(c.metrics.Handler()))
			}
			srv := server.New(svc, opts...)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return svc.Run(gctx, cfg.TickInterval())
			})
			g.Go(func() error {
				return srv.ListenAndServe(gctx, addr)
			})
			if cfg.Prices.File != "" && pricesReload > 0 {
				g.Go(func() error {
					return reloadPrices(gctx, svc, cfg.Prices.File, pricesReload)
				})
			}

			printInfo(c.Out, "Serving on %s", StyleHighlight.Render("http://"+addr))
			printDetail(c.Out, "tick %s, store %s", cfg.TickInterval(), cfg.Store.Backend)
			err = g.Wait()

			svc.Drain()
			if n, saveErr := svc.Save(context.WithoutCancel(ctx)); saveErr != nil {
				c.Logger.Error("save on shutdown", "error", saveErr)
			} else {
				c.Logger.Info("saved portfolio", "records", n)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+server.DefaultAddr+")")
	cmd.Flags().DurationVar(&pricesReload, "prices-reload", 0, "re-read prices.file at this interval (0 disables)")
	cmd.Flags().BoolVar(&paused, "paused", false, "start with the clock paused")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not serve /metrics")
	return cmd
}

// reloadPrices re-reads a prices file on an interval. A file that fails to
// load keeps the previous quotes.
func reloadPrices(ctx context.Context, svc *portfolio.Service, path string, every time.Duration) error {
	logger := loggerFromContext(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			quotes, err := prices.LoadFile(path)
			if err != nil {
				logger.Warn("reload prices", "path", path, "error", err)
				continue
			}
			svc.SetPrices(quotes)
		}
	}
}
