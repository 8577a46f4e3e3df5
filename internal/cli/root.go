package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/coinstack/pkg/buildinfo"
	"github.com/matzehuels/coinstack/pkg/errors"
)

// SetVersion sets the version information displayed by --version. It is
// meant for builds that cannot use ldflags on pkg/buildinfo.
func SetVersion(v, c, d string) {
	if v != "" {
		buildinfo.Version = v
	}
	if c != "" {
		buildinfo.Commit = c
	}
	if d != "" {
		buildinfo.Date = d
	}
}

// Execute runs the coinstack CLI with args. Command output goes to stdout,
// logs to stderr.
//
// Logging:
//   - Default: info level
//   - With --verbose (-v): debug level
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var verbose bool

	c := New(stderr, LogInfo)
	c.Out = stdout

	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	if err := root.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		printError(stderr, "%s", errors.UserMessage(err))
		return err
	}
	return nil
}
