package cli

import (
	"fmt"
	"sync/atomic"

	"github.com/ka2n/dataprovider/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWarmCmd(opts *options) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Refresh the cached contents of every caching resource",
		Long: `Fetch every resource with caching enabled, ignoring cached results, so the
cache holds fresh contents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			descriptors, err := a.manager.Resources(cmd.Context())
			if err != nil {
				return err
			}
			a.manager.UseCaches(false)

			var warmed atomic.Int32
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for _, d := range descriptors {
				if !d.Caching.Enabled {
					continue
				}
				g.Go(func() error {
					contents, err := a.manager.Fetch(ctx, d)
					if err != nil {
						return err
					}
					if contents != nil {
						warmed.Add(1)
					}
					log.Debug("Warmed resource", "resource", d.Name)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Warmed %d resources\n", warmed.Load())
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Resources fetched at once")
	return cmd
}
