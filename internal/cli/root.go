package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it with ctx.
//
// Logging goes to stderr at info level; --verbose (-v) switches to debug
// before the command runs. Commands reach the logger through their context.
//
//	func main() {
//	    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer cancel()
//	    if err := cli.Execute(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	return New(os.Stderr, LogInfo).Command().ExecuteContext(ctx)
}

// Command returns the root command with the --verbose flag wired to the
// CLI's logger.
func (c *CLI) Command() *cobra.Command {
	var verbose bool
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		if loadConfig != nil {
			return loadConfig(cmd, args)
		}
		return nil
	}
	return root
}
