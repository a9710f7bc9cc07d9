package mcp

import (
	"context"
	"testing"

	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/api/fetcher"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct{ payload any }

func (f staticFetcher) Fetch(context.Context) (*fetcher.Result, error) {
	return fetcher.NewResult(f.payload, "static"), nil
}

func newManager() *api.ResourceManager {
	fetchers := fetcher.NewRegistry(fetcher.Options{})
	fetchers.Register(plugin.Definition{ID: "static", Label: "Static"}, func(string, plugin.Settings) (fetcher.Fetcher, error) {
		return staticFetcher{payload: `{"x":1}`}, nil
	})

	return api.NewResourceManager(api.Options{
		Fetchers: fetchers,
		Resources: resource.NewMapRepository(&resource.Descriptor{
			Name:        "a",
			Label:       "A",
			Fetcher:     plugin.Config{PluginID: "static"},
			Transformer: resource.Transformer{Plugins: []plugin.Config{{PluginID: "json_decode"}}},
		}),
	})
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text, res.IsError
}

func TestFetchResource(t *testing.T) {
	tool, handler := FetchResource(newManager())
	assert.Equal(t, "fetch_resource", tool.Name)

	text, isError := call(t, handler, map[string]any{"name": "a"})
	assert.False(t, isError)
	assert.JSONEq(t, `{"resource":"a","contents":{"x":1}}`, text)

	_, isError = call(t, handler, map[string]any{"name": "missing"})
	assert.True(t, isError)

	_, isError = call(t, handler, map[string]any{})
	assert.True(t, isError)
}

func TestListResources(t *testing.T) {
	_, handler := ListResources(newManager())

	text, isError := call(t, handler, nil)
	assert.False(t, isError)
	assert.JSONEq(t, `[{"name":"a","label":"A","fetcher":"static","caching":false}]`, text)
}
