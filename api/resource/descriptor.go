// Package resource defines resource descriptors: which fetcher produces a
// resource, which transformers rewrite it and how the result is cached.
package resource

import (
	"sort"
	"strings"
	"time"

	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/api/plugin"
	"gopkg.in/yaml.v3"
)

// ErrorCode defines error types for resource operations
type ErrorCode string

const (
	// ErrResourceNotFound is returned when no resource exists under a name
	ErrResourceNotFound ErrorCode = "ResourceNotFound"

	// ErrInvalidDescriptor is returned for descriptors that cannot be used
	ErrInvalidDescriptor ErrorCode = "InvalidDescriptor"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// CacheKeyPrefix prefixes the cache key of every resource
const CacheKeyPrefix = "data_provider:response:"

// Descriptor is the declarative configuration of one resource
type Descriptor struct {
	// Name identifies the resource and never changes
	Name string `yaml:"name" json:"name"`

	// Label is for display only
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	Fetcher     plugin.Config `yaml:"fetcher" json:"fetcher"`
	Transformer Transformer   `yaml:"transformer,omitempty" json:"transformer,omitempty"`
	Caching     Caching       `yaml:"caching,omitempty" json:"caching,omitempty"`
}

// Transformer holds the transformer steps of a resource
type Transformer struct {
	Plugins []plugin.Config `yaml:"plugins,omitempty" json:"plugins,omitempty"`
}

// Caching is the caching policy of a resource
type Caching struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Expired is an expiration expression such as "+1 day". Empty caches
	// permanently.
	Expired string `yaml:"expired,omitempty" json:"expired,omitempty"`

	// Recursive also collects the tags of referenced entities
	Recursive bool `yaml:"recursive,omitempty" json:"recursive,omitempty"`

	Exclude Exclude `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// Tags are "<entity kind>:<id>" references whose cache tags invalidate
	// the resource
	Tags Tags `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Exclude lists entity kinds whose tags are never collected
type Exclude struct {
	EntityTypes []string `yaml:"entity_types,omitempty" json:"entity_types,omitempty"`
}

// Tags is a list of tags. In YAML it is either a sequence or a string with
// one tag per line.
type Tags []string

// UnmarshalYAML implements yaml.Unmarshaler
func (t *Tags) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = splitLines(s)
		return nil
	}

	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

func splitLines(s string) []string {
	var tags []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			tags = append(tags, line)
		}
	}
	return tags
}

// ID returns the name of the resource
func (d *Descriptor) ID() string {
	return d.Name
}

// CacheKey returns the key the transformed output is cached under
func (d *Descriptor) CacheKey() string {
	return CacheKeyPrefix + d.Name
}

// BaseTag returns the tag every cached output of the resource carries
func (d *Descriptor) BaseTag() string {
	return "config:data_provider.resource." + d.Name
}

// Transformers returns the transformer steps ordered by weight. Steps of
// equal weight keep their configured order.
func (d *Descriptor) Transformers() []plugin.Config {
	steps := make([]plugin.Config, len(d.Transformer.Plugins))
	copy(steps, d.Transformer.Plugins)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Weight < steps[j].Weight
	})
	return steps
}

// ExpiresAt resolves the expiration of a cache entry written at now
func (d *Descriptor) ExpiresAt(now time.Time) (time.Time, error) {
	return cache.ResolveExpiration(d.Caching.Expired, now)
}

// Excluded reports whether tags of the entity kind are never collected
func (d *Descriptor) Excluded(kind string) bool {
	for _, k := range d.Caching.Exclude.EntityTypes {
		if k == kind {
			return true
		}
	}
	return false
}
