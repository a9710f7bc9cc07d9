// Package transformer defines transformer plugins, which conditionally
// rewrite the value flowing through a resource's transformer chain, and the
// built-in transformers.
package transformer

import (
	"context"

	"github.com/ka2n/dataprovider/api/fetcher"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/value"
)

// ErrorCode defines error types for transform operations
type ErrorCode string

const (
	// ErrTransform represents malformed input to a transformer
	ErrTransform ErrorCode = "TransformError"

	// ErrInvalidFormatter is returned for an unknown array value formatter
	ErrInvalidFormatter ErrorCode = "InvalidFormatter"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Transformer rewrites a value
type Transformer interface {
	// IsApplicable reports whether Transform should run for v. It must not
	// modify v.
	IsApplicable(v *value.Value) bool

	// Transform returns the full replacement for v. It must not modify the
	// value held by v.
	Transform(ctx context.Context, v *value.Value) (any, error)
}

// Options configures the built-in transformers
type Options struct {
	// Callbacks are the named hooks available to the "callback" formatter of
	// the array value formatter. They are added to DefaultCallbacks.
	Callbacks map[string]Callback
}

// NewRegistry returns a transformer registry holding the built-in
// transformers
func NewRegistry(opts Options) *plugin.Registry[Transformer] {
	r := plugin.NewRegistry[Transformer]("transformer")
	RegisterJSONDecode(r)
	RegisterArrayValueFormatter(r, opts)
	RegisterHTMLMarkdown(r)
	return r
}

// textOf returns the textual content of HTTP responses, strings and byte
// slices.
func textOf(v any) (string, bool) {
	switch x := v.(type) {
	case *fetcher.Response:
		if x == nil {
			return "", false
		}
		return x.Text(), true
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}
