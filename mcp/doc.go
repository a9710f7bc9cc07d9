// Package mcp implements the Model Context Protocol server for dataprovider.
//
// The mcp package provides:
// - Tools fetching resource contents by name
// - Tools listing the configured resources
package mcp
