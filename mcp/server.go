package mcp

import (
	"github.com/ka2n/dataprovider/api"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server represents the MCP server for dataprovider
type Server struct {
	server *server.MCPServer
}

// NewServer creates a new MCP server instance serving m
func NewServer(m *api.ResourceManager) *Server {
	s := server.NewMCPServer("dataprovider", api.Version)

	s.AddTools(InitTools(m)...)

	return &Server{
		server: s,
	}
}

// Run starts the MCP server
func (s *Server) Run() error {
	return server.ServeStdio(s.server)
}

func newServerTool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	return server.ServerTool{
		Tool:    tool,
		Handler: handler,
	}
}
