package api

import (
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/morikuni/failure/v2"
)

// ErrorCode defines error types for resource manager operations
type ErrorCode string

const (
	// ErrResourceNotFound is returned when no resource exists under a name
	ErrResourceNotFound ErrorCode = "ResourceNotFound"

	// ErrPluginNotFound is returned when a descriptor names an unknown
	// fetcher or transformer
	ErrPluginNotFound ErrorCode = "PluginNotFound"

	// ErrFetch represents fetcher failures
	ErrFetch ErrorCode = "FetchError"

	// ErrTransform represents transformer failures
	ErrTransform ErrorCode = "TransformError"

	// ErrCache represents cache store failures
	ErrCache ErrorCode = "CacheError"

	// ErrInvalidPolicy is returned for unknown error policies
	ErrInvalidPolicy ErrorCode = "InvalidErrorPolicy"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// classify wraps err with code, unless err is about a missing plugin
func classify(err error, code ErrorCode, name string) error {
	if failure.Is(err, plugin.ErrPluginNotFound) {
		code = ErrPluginNotFound
	}
	return failure.Wrap(err, failure.WithCode(code), failure.Context{"resource": name})
}

func notFound(err error, name string) error {
	if failure.Is(err, resource.ErrResourceNotFound) {
		return failure.Wrap(err, failure.WithCode(ErrResourceNotFound),
			failure.Message("Unable to locate data provider for "+name),
			failure.Context{"resource": name},
		)
	}
	return failure.Wrap(err, failure.Context{"resource": name})
}
