// Package fetcher defines fetcher plugins, which retrieve the raw data of a
// resource, and the built-in HTTP request fetcher.
package fetcher

import (
	"context"
	"net/http"

	"github.com/ka2n/dataprovider/api/plugin"
)

// ErrorCode defines error types for fetch operations
type ErrorCode string

const (
	// ErrFetch represents transport level failures
	ErrFetch ErrorCode = "FetchError"

	// ErrMissingURL is returned when a fetcher has no URL configured
	ErrMissingURL ErrorCode = "MissingURL"

	// ErrStatus is returned when the response status is not 200
	ErrStatus ErrorCode = "UnexpectedStatus"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Fetcher retrieves raw data for a resource
type Fetcher interface {
	// Fetch retrieves the data. Implementations are configured at creation
	// time and may be called more than once.
	Fetch(ctx context.Context) (*Result, error)
}

// Result is the output of a fetcher together with the id of the plugin that
// produced it
type Result struct {
	pluginID string
	payload  any
}

// NewResult creates a fetcher result
func NewResult(payload any, pluginID string) *Result {
	return &Result{payload: payload, pluginID: pluginID}
}

// PluginID returns the id of the fetcher that produced the result
func (r *Result) PluginID() string {
	return r.pluginID
}

// Payload returns the fetched data
func (r *Result) Payload() any {
	return r.payload
}

// Options configures the built-in fetchers
type Options struct {
	// BaseURL resolves "internal" URLs of the HTTP request fetcher
	BaseURL string

	// Transport is the base round tripper of HTTP fetchers. Nil builds a
	// transport from each fetcher's request options.
	Transport http.RoundTripper
}

// NewRegistry returns a fetcher registry holding the built-in fetchers
func NewRegistry(opts Options) *plugin.Registry[Fetcher] {
	r := plugin.NewRegistry[Fetcher]("fetcher")
	RegisterHTTP(r, opts)
	return r
}
