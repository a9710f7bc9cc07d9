// Package cli implements the command-line interface for dataprovider.
//
// The cli package provides:
// - Fetching single resources, rendered or as JSON
// - Serving resources over HTTP and MCP
// - Listing resources and plugins, validating descriptors
// - Warming and invalidating the cache
package cli
