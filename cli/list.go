package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ka2n/dataprovider/api/transformer"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured resources",
		Args:  cobra.NoArgs,
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

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLABEL\tFETCHER\tTRANSFORMERS\tCACHING")
			for _, d := range descriptors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					d.Name, d.Label, d.Fetcher.PluginID, len(d.Transformer.Plugins),
					lo.Ternary(d.Caching.Enabled, "yes", "no"),
				)
			}
			return w.Flush()
		},
	}
}

func newPluginsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List available fetchers, transformers and formatters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Fetchers:")
			printOptions(cmd, a.manager.Fetchers().Options(nil), nil)

			fmt.Fprintln(out, "Transformers:")
			printOptions(cmd, a.manager.Transformers().Options(nil), func(id string) string {
				def, _ := a.manager.Transformers().Definition(id)
				return lo.Ternary(def.SupportsMultiple, " (multiple)", "")
			})

			fmt.Fprintln(out, "Array value formatters:")
			for _, f := range transformer.FormatterOptions(transformer.Formatters(nil)) {
				fmt.Fprintf(out, "  %-16s %s\n", f[0], f[1])
			}
			fmt.Fprintf(out, "  callbacks: %s\n", strings.Join(sortedKeys(transformer.DefaultCallbacks), ", "))
			return nil
		},
	}
}

func printOptions(cmd *cobra.Command, options map[string]string, suffix func(id string) string) {
	ids := lo.Keys(options)
	sort.Strings(ids)
	for _, id := range ids {
		s := ""
		if suffix != nil {
			s = suffix(id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %s%s\n", id, options[id], s)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

