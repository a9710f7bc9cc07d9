package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/ka2n/dataprovider/api"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
)

var validate = validator.New()

// InitTools returns the tools backed by m
func InitTools(m *api.ResourceManager) []server.ServerTool {
	tools := []server.ServerTool{}

	tools = append(tools, newServerTool(FetchResource(m)))
	tools = append(tools, newServerTool(ListResources(m)))

	return tools
}

// FetchResource returns the fetch_resource tool
func FetchResource(m *api.ResourceManager) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"fetch_resource",
			mcp.WithDescription("Fetch the transformed contents of a configured data provider resource"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Resource name")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				Name string `json:"name" validate:"required"`
			}
			var args ToolArguments
			if err := mapstructure.Decode(req.Params.Arguments, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := validate.StructCtx(ctx, args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			contents, err := m.FetchByName(ctx, args.Name)
			if err != nil {
				return mcp.NewToolResultError(message(err)), nil
			}

			type Result struct {
				Resource string `json:"resource"`
				Contents any    `json:"contents"`
			}
			b, err := json.Marshal(Result{Resource: args.Name, Contents: contents})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			return mcp.NewToolResultText(string(b)), nil
		}
}

// ListResources returns the list_resources tool
func ListResources(m *api.ResourceManager) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"list_resources",
			mcp.WithDescription("List the configured data provider resources"),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			descriptors, err := m.Resources(ctx)
			if err != nil {
				return mcp.NewToolResultError(message(err)), nil
			}

			type ResourceInfo struct {
				Name    string `json:"name"`
				Label   string `json:"label,omitempty"`
				Fetcher string `json:"fetcher"`
				Caching bool   `json:"caching"`
			}
			infos := make([]ResourceInfo, 0, len(descriptors))
			for _, d := range descriptors {
				infos = append(infos, ResourceInfo{
					Name:    d.Name,
					Label:   d.Label,
					Fetcher: d.Fetcher.PluginID,
					Caching: d.Caching.Enabled,
				})
			}

			b, err := json.Marshal(infos)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			return mcp.NewToolResultText(string(b)), nil
		}
}

func message(err error) string {
	if fmsg := failure.MessageOf(err); fmsg != "" {
		return fmsg.String()
	}
	return err.Error()
}
