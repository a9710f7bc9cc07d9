package cli

import (
	"fmt"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached resource contents",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.manager.ClearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	var tags []string
	invalidateCmd := &cobra.Command{
		Use:   "invalidate [NAME...]",
		Short: "Remove cached results of resources or tags",
		Long: `Remove the cached results of the named resources, and of every resource
attached to one of the --tag tags (for example node:1).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(tags) == 0 {
				return failure.New(ErrInvalidArguments,
					failure.Message("Specify resource names or --tag"),
				)
			}

			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) > 0 {
				if err := a.manager.Invalidate(cmd.Context(), args...); err != nil {
					return err
				}
			}
			if len(tags) > 0 {
				if err := a.manager.InvalidateTags(cmd.Context(), tags...); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %d resources and %d tags\n", len(args), len(tags))
			return nil
		},
	}
	invalidateCmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Cache tag to invalidate (repeatable)")

	cmd.AddCommand(clearCmd, invalidateCmd)
	return cmd
}
