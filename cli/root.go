package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/log"
	"github.com/ka2n/dataprovider/mcp"
	"github.com/spf13/cobra"
)

// Run executes the main CLI functionality
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "dataprovider",
		Short:         "Fetch, transform and cache configured resources",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `dataprovider runs resources: each resource names a fetcher that retrieves
raw data, an ordered chain of transformers that rewrite it, and a caching
policy for the result.

Resources are YAML files in the configured resources directory. The result
of a resource is available from the command line, over HTTP and over MCP.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				log.SetLevel(slog.LevelDebug)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Configuration file (default $DATAPROVIDER_CONFIG or ./dataprovider.yml)")
	pf.Var(&opts.policy, "policy", "Error policy for failed fetches: log or propagate")
	pf.BoolVar(&opts.noCache, "no-cache", false, "Do not read cached results")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newVersionCmd(),
		newFetchCmd(opts),
		newListCmd(opts),
		newPluginsCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newCacheCmd(opts),
		newWarmCmd(opts),
		mcp.Command(func() (*api.ResourceManager, func() error, error) {
			a, err := opts.setup()
			if err != nil {
				return nil, nil, err
			}
			return a.manager, a.Close, nil
		}),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print detailed version information about dataprovider",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dataprovider version %s\n", api.Version)
			if api.VersionCommit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", api.VersionCommit)
			}
		},
	}
}
