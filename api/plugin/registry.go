// Package plugin implements the registries that describe and instantiate
// fetcher and transformer plugins.
package plugin

import (
	"sort"
	"sync"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// ErrorCode defines error types for plugin operations
type ErrorCode string

const (
	// ErrPluginNotFound is returned when no plugin is registered under an id
	ErrPluginNotFound ErrorCode = "PluginNotFound"

	// ErrInvalidSettings is returned when plugin settings cannot be decoded or validated
	ErrInvalidSettings ErrorCode = "InvalidSettings"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Settings is the free-form configuration handed to a plugin
type Settings map[string]any

// Definition describes a registered plugin
type Definition struct {
	// ID is the identifier descriptors refer to (e.g. "http_request")
	ID string

	// Label is the human readable name shown in option lists
	Label string

	// SupportsMultiple reports whether the plugin may appear more than once
	// in a single transformer chain
	SupportsMultiple bool

	// Defaults are merged under the settings passed to CreateInstance
	Defaults Settings
}

// Factory builds a plugin instance from its merged settings
type Factory[T any] func(id string, settings Settings) (T, error)

type entry[T any] struct {
	def     Definition
	factory Factory[T]
}

// Registry maps plugin ids to definitions and factories for one kind of
// plugin. It is safe for concurrent use.
type Registry[T any] struct {
	kind string

	mu      sync.RWMutex
	entries map[string]entry[T]
}

// NewRegistry creates an empty registry. kind is used in error messages.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]entry[T]),
	}
}

// Register adds or replaces the plugin registered under def.ID
func (r *Registry[T]) Register(def Definition, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.ID] = entry[T]{def: def, factory: factory}
}

// Has reports whether id is registered
func (r *Registry[T]) Has(id string) bool {
	_, ok := r.Definition(id)
	return ok
}

// Definition returns the definition registered under id
func (r *Registry[T]) Definition(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.def, ok
}

// Definitions returns every definition sorted by id
func (r *Registry[T]) Definitions() []Definition {
	r.mu.RLock()
	defs := lo.MapToSlice(r.entries, func(_ string, e entry[T]) Definition {
		return e.def
	})
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Options returns plugin id -> label for every labelled plugin, minus
// those for which exclude returns true. exclude may be nil.
func (r *Registry[T]) Options(exclude func(Definition) bool) map[string]string {
	options := make(map[string]string)
	for _, def := range r.Definitions() {
		if def.Label == "" || (exclude != nil && exclude(def)) {
			continue
		}
		options[def.ID] = def.Label
	}
	return options
}

// CreateInstance instantiates the plugin registered under id with settings
// merged over the plugin's defaults.
func (r *Registry[T]) CreateInstance(id string, settings Settings) (T, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, failure.New(ErrPluginNotFound,
			failure.Message("Plugin not found"),
			failure.Context{
				"kind":   r.kind,
				"plugin": id,
			},
		)
	}

	instance, err := e.factory(id, Merge(e.def.Defaults, settings))
	if err != nil {
		var zero T
		return zero, failure.Wrap(err, failure.Context{
			"kind":   r.kind,
			"plugin": id,
		})
	}
	return instance, nil
}

// Merge returns a new Settings holding defaults overridden key by key by
// overrides. Nested maps are replaced, not merged.
func Merge(defaults, overrides Settings) Settings {
	merged := make(Settings, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Validator is implemented by plugin instances that can check their
// settings ahead of use
type Validator interface {
	Validate() error
}
