package resource

import (
	"context"
	"strings"

	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/api/entity"
	"github.com/ka2n/dataprovider/log"
)

// ParseTag splits a configured "<entity kind>:<id>" tag
func ParseTag(tag string) (entity.Ref, bool) {
	kind, id, ok := strings.Cut(strings.TrimSpace(tag), ":")
	if !ok || kind == "" || id == "" {
		return entity.Ref{}, false
	}
	return entity.Ref{Kind: kind, ID: id}, true
}

// TagCollector computes the cache tags of resources from the entities their
// configured tags refer to
type TagCollector struct {
	entities entity.Store
}

// NewTagCollector creates a TagCollector. With a nil store configured tags
// are used verbatim.
func NewTagCollector(entities entity.Store) *TagCollector {
	return &TagCollector{entities: entities}
}

// CacheTags returns the base tag of d merged with the tags of every entity
// d's configured tags refer to. Entities of excluded kinds contribute
// nothing. With Caching.Recursive, referenced entities are walked too; each
// entity is visited once, so reference cycles terminate. Tags that cannot
// be parsed or loaded are logged and skipped.
func (c *TagCollector) CacheTags(ctx context.Context, d *Descriptor) []string {
	tags := []string{d.BaseTag()}
	if c.entities == nil {
		return cache.MergeTags(tags, d.Caching.Tags)
	}

	visited := make(map[entity.Ref]bool)
	for _, tag := range d.Caching.Tags {
		ref, ok := ParseTag(tag)
		if !ok {
			log.Warn("Invalid cache tag", "resource", d.Name, "tag", tag)
			continue
		}
		e, err := c.entities.Load(ctx, ref)
		if err != nil {
			log.Warn("Failed to load cache tag entity", "resource", d.Name, "tag", tag, "error", err.Error())
			continue
		}
		tags = c.walk(ctx, d, e, visited, tags)
	}
	return cache.MergeTags(tags)
}

func (c *TagCollector) walk(ctx context.Context, d *Descriptor, e *entity.Entity, visited map[entity.Ref]bool, tags []string) []string {
	if visited[e.Ref()] || d.Excluded(e.Kind) {
		return tags
	}
	visited[e.Ref()] = true
	tags = append(tags, e.CacheTags()...)

	if !d.Caching.Recursive {
		return tags
	}
	for _, ref := range e.References {
		if visited[ref] {
			continue
		}
		child, err := c.entities.Load(ctx, ref)
		if err != nil {
			log.Debug("Skipping referenced entity", "resource", d.Name, "entity", ref.String(), "error", err.Error())
			continue
		}
		tags = c.walk(ctx, d, child, visited, tags)
	}
	return tags
}
