package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/coinstack/pkg/export"
	"github.com/matzehuels/coinstack/pkg/portfolio"
	"github.com/matzehuels/coinstack/pkg/store"
)

// storeCommand creates the store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the saved portfolio",
	}

	cmd.AddCommand(c.storePathCommand())
	cmd.AddCommand(c.storeClearCommand())
	cmd.AddCommand(c.storeExportCommand())
	cmd.AddCommand(c.storeImportCommand())

	return cmd
}

// storePathCommand prints where the portfolio is saved.
func (c *CLI) storePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the portfolio is saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := cfg.StoreOptions()
			if err != nil {
				return err
			}
			switch opts.Backend {
			case store.BackendFile, "":
				fs, err := store.NewFileStore(opts.Path)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Out, fs.Path(cfg.Store.Key))
			case store.BackendRedis:
				fmt.Fprintf(c.Out, "redis://%s/%d %s\n", opts.RedisAddr, opts.RedisDB, cfg.Store.Key)
			case store.BackendMongo:
				fmt.Fprintf(c.Out, "%s %s.%s %s\n", opts.MongoURI, opts.MongoDatabase, opts.MongoCollection, cfg.Store.Key)
			default:
				fmt.Fprintln(c.Out, opts.Backend)
			}
			return nil
		},
	}
}

// storeClearCommand deletes the saved portfolio without touching anything else.
func (c *CLI) storeClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), cfg.Store.Key); err != nil {
				return err
			}
			printSuccess(c.Out, "Deleted saved portfolio")
			printDetail(c.Out, "backend %s, key %s", store.Name(st), cfg.Store.Key)
			return nil
		},
	}
}

// storeExportCommand writes the saved records to a JSON file.
func (c *CLI) storeExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.json>",
		Short: "Write the portfolio records to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeStore, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			records := portfolio.Records(svc.Engine.Blocks())
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := export.WriteRecords(records, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess(c.Out, "Exported %s", plural(len(records), "record"))
			printFile(c.Out, args[0])
			return nil
		},
	}
}

// storeImportCommand adds the records of a JSON file to the portfolio.
func (c *CLI) storeImportCommand() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Add the records of a JSON file to the portfolio",
		Long: `Add every record of a JSON file, as written by "coinstack store export", to
the portfolio. Malformed records are skipped with a warning. With --replace
the current portfolio is dropped first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, skipped, err := export.ImportRecords(args[0])
			if err != nil {
				return err
			}
			for _, e := range skipped {
				printWarning(c.Out, "skipped: %v", e)
			}

			added := 0
			_, err = c.mutate(cmd.Context(), func(svc *portfolio.Service) error {
				if replace {
					svc.Engine.Clear()
				}
				for _, r := range records {
					if _, err := svc.Add(cmd.Context(), r.AssetID, r.Quantity); err != nil {
						printWarning(c.Out, "skipped %s: %v", r.AssetID, err)
						continue
					}
					added++
				}
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Imported %s", plural(added, "record"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "drop the current portfolio first")
	return cmd
}
