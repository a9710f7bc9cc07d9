package cli

import (
	"fmt"
	"strings"

	"github.com/ka2n/dataprovider/log"
	"github.com/ka2n/dataprovider/server"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr string
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resources over HTTP",
		Long: `Serve resources over HTTP:

  GET /api/data-provider/resource          list resources
  GET /api/data-provider/resource/{name}   {"resource": name, "contents": ...}
  GET /metrics                             prometheus metrics
  GET /healthz                             liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			if open {
				u := localURL(addr) + server.ResourcePath
				go func() {
					if err := browser.OpenURL(u); err != nil {
						log.Warn("Failed to open browser", "url", u, "error", err.Error())
					}
				}()
			}

			return server.New(a.manager, a.registry).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from configuration)")
	cmd.Flags().BoolVarP(&open, "open", "o", false, "Open the resource list in a browser")
	return cmd
}

// localURL turns a listen address into a URL on this host
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s", addr)
}
