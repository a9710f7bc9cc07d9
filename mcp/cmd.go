package mcp

import (
	"github.com/ka2n/dataprovider/api"
	"github.com/spf13/cobra"
)

// SetupFunc builds the resource manager served by the MCP server and a
// function releasing it
type SetupFunc func() (*api.ResourceManager, func() error, error)

// Command returns the MCP server command
func Command(setup SetupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Serve resources to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := setup()
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			return NewServer(m).Run()
		},
	}
}
