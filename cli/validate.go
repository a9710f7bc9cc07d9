package cli

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [NAME...]",
		Short: "Check resource descriptors",
		Long: `Check resource descriptors against the available plugins. Without names
every resource is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			var descriptors []*resource.Descriptor
			if len(args) == 0 {
				if descriptors, err = a.manager.Resources(cmd.Context()); err != nil {
					return err
				}
			}
			for _, name := range args {
				d, err := a.manager.Resource(cmd.Context(), name)
				if err != nil {
					return err
				}
				descriptors = append(descriptors, d)
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, d := range descriptors {
				err := a.manager.Validate(d)
				if err == nil {
					fmt.Fprintf(out, "ok      %s\n", d.Name)
					continue
				}
				invalid++
				fmt.Fprintf(out, "invalid %s\n", d.Name)

				var merr *multierror.Error
				if !errors.As(err, &merr) {
					fmt.Fprintf(out, "  - %v\n", err)
					continue
				}
				for _, e := range merr.Errors {
					msg := e.Error()
					if fmsg := failure.MessageOf(e); fmsg != "" {
						msg = fmsg.String()
					}
					fmt.Fprintf(out, "  - %s\n", msg)
				}
			}

			if invalid > 0 {
				return failure.New(ErrInvalidResources,
					failure.Message(fmt.Sprintf("%d of %d resources are invalid", invalid, len(descriptors))),
				)
			}
			return nil
		},
	}
}
