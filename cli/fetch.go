package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/ka2n/dataprovider/server"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

func newFetchCmd(opts *options) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "fetch NAME",
		Short: "Fetch a resource and print its contents",
		Long: `Fetch a resource and print {"resource": NAME, "contents": ...} as JSON.

With --render, string contents (for example the output of the html_markdown
transformer) are rendered as markdown and shown in a pager on a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			contents, err := a.manager.FetchByName(cmd.Context(), name)
			if err != nil {
				return err
			}

			if s, ok := contents.(string); ok && render {
				return renderMarkdown(cmd.OutOrStdout(), name, s)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(server.Response{Resource: name, Contents: contents}); err != nil {
				return failure.Wrap(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&render, "render", "r", false, "Render string contents as markdown")
	return cmd
}

func renderMarkdown(w io.Writer, title, md string) error {
	// Render markdown with glamour
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return failure.Wrap(err)
	}

	out, err := renderer.Render(md)
	if err != nil {
		return failure.Wrap(err)
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return RunPager(title, out)
	}
	_, err = fmt.Fprint(w, out)
	return err
}
