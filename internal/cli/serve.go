package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmburst/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart API over HTTP",
		Long: `Serve starts the HTTP API: downloads, version trees, drill-down tables and
rendered charts, all addressed by the same query parameters as the chart
state (package, lpf, sortBy, selectedVersion, expanded).`,
		Example: `  npmburst serve
  npmburst serve --addr 127.0.0.1:9000 --timeout 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = c.Config.Server.Timeout.Duration
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner,
				server.WithLogger(c.Logger),
				server.WithTimeout(timeout),
				server.WithDefaults(c.Config.Defaults.Package, c.Config.Defaults.Threshold),
			)
			printInfo(cmd.ErrOrStderr(), "Serving on %s", StyleLink.Render("http://"+displayAddr(addr)))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (default from config, 30s)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// displayAddr turns a listen address into one a browser can open.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
