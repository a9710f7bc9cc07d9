// Package api runs resources: it resolves a descriptor, answers from the
// cache when it can, and otherwise fetches, transforms and caches the data.
package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/api/fetcher"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/ka2n/dataprovider/api/transformer"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
	"golang.org/x/sync/singleflight"
)

// ErrorPolicy decides what happens to fetch and transform errors
type ErrorPolicy string

const (
	// PolicyLog logs errors and returns no contents
	PolicyLog ErrorPolicy = "log"

	// PolicyPropagate returns errors to the caller
	PolicyPropagate ErrorPolicy = "propagate"
)

// ParseErrorPolicy parses "log" or "propagate"
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case PolicyLog, PolicyPropagate:
		return p, nil
	default:
		return "", failure.New(ErrInvalidPolicy,
			failure.Message("Error policy must be log or propagate"),
			failure.Context{"policy": s},
		)
	}
}

// TagComputer computes the cache tags of a resource
type TagComputer interface {
	CacheTags(ctx context.Context, d *resource.Descriptor) []string
}

// Options configures a ResourceManager
type Options struct {
	Fetchers     *plugin.Registry[fetcher.Fetcher]
	Transformers *plugin.Registry[transformer.Transformer]
	Resources    resource.Repository

	// Cache defaults to cache.Nop
	Cache cache.Store

	// Tags defaults to a resource.TagCollector without an entity store
	Tags TagComputer

	// Policy defaults to PolicyLog
	Policy ErrorPolicy

	// Dedupe shares one computation between concurrent cache misses of the
	// same resource
	Dedupe bool

	// Metrics may be nil
	Metrics *Metrics

	// Now defaults to time.Now
	Now func() time.Time
}

// ResourceManager fetches resources. It is safe for concurrent use; apart
// from the cache store it keeps no state between calls.
type ResourceManager struct {
	fetchers     *plugin.Registry[fetcher.Fetcher]
	transformers *plugin.Registry[transformer.Transformer]
	resources    resource.Repository
	cache        cache.Store
	tags         TagComputer
	policy       ErrorPolicy
	dedupe       bool
	metrics      *Metrics
	now          func() time.Time

	useCaches atomic.Bool
	group     singleflight.Group
}

// NewResourceManager creates a ResourceManager. Missing registries are
// replaced by the built-in ones.
func NewResourceManager(opts Options) *ResourceManager {
	m := &ResourceManager{
		fetchers:     opts.Fetchers,
		transformers: opts.Transformers,
		resources:    opts.Resources,
		cache:        opts.Cache,
		tags:         opts.Tags,
		policy:       opts.Policy,
		dedupe:       opts.Dedupe,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if m.fetchers == nil {
		m.fetchers = fetcher.NewRegistry(fetcher.Options{})
	}
	if m.transformers == nil {
		m.transformers = transformer.NewRegistry(transformer.Options{})
	}
	if m.resources == nil {
		m.resources = resource.NewMapRepository()
	}
	if m.cache == nil {
		m.cache = cache.Nop{}
	}
	if m.tags == nil {
		m.tags = resource.NewTagCollector(nil)
	}
	if m.policy == "" {
		m.policy = PolicyLog
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.useCaches.Store(true)
	return m
}

// UseCaches toggles cache reads. Results are still written to the cache
// while reads are off.
func (m *ResourceManager) UseCaches(use bool) {
	m.useCaches.Store(use)
}

// Fetchers returns the fetcher registry
func (m *ResourceManager) Fetchers() *plugin.Registry[fetcher.Fetcher] {
	return m.fetchers
}

// Transformers returns the transformer registry
func (m *ResourceManager) Transformers() *plugin.Registry[transformer.Transformer] {
	return m.transformers
}

// Resources returns every known descriptor sorted by name
func (m *ResourceManager) Resources(ctx context.Context) ([]*resource.Descriptor, error) {
	return m.resources.List(ctx)
}

// Resource returns the descriptor named name
func (m *ResourceManager) Resource(ctx context.Context, name string) (*resource.Descriptor, error) {
	d, err := m.resources.Get(ctx, name)
	if err != nil {
		return nil, notFound(err, name)
	}
	return d, nil
}

// FetchByName resolves the descriptor named name and fetches it. An
// unknown name is an ErrResourceNotFound error whatever the policy.
func (m *ResourceManager) FetchByName(ctx context.Context, name string) (any, error) {
	d, err := m.Resource(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.Fetch(ctx, d)
}

// Fetch returns the transformed data of d.
//
// With caching enabled a live cache entry is returned as is. Otherwise the
// fetcher runs, its payload goes through the transformer chain and the
// result is cached with the expiration and tags of d. With PolicyLog a
// failed fetch or transform is logged and Fetch returns nil, nil.
func (m *ResourceManager) Fetch(ctx context.Context, d *resource.Descriptor) (any, error) {
	if !m.dedupe {
		return m.fetch(ctx, d)
	}
	v, err, _ := m.group.Do(d.CacheKey(), func() (any, error) {
		return m.fetch(ctx, d)
	})
	return v, err
}

func (m *ResourceManager) fetch(ctx context.Context, d *resource.Descriptor) (any, error) {
	logger := log.Logger.With("resource", d.Name)
	key := d.CacheKey()

	if d.Caching.Enabled && m.useCaches.Load() {
		entry, ok, err := m.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("Cache read failed", "error", err.Error())
		case ok:
			logger.Debug("Cache hit", "key", key)
			m.metrics.hit(d.Name)
			return entry.Value, nil
		}
	}

	data, err := m.run(ctx, d)
	if err != nil {
		m.metrics.fetched(d.Name, ResultError)
		if m.policy == PolicyPropagate {
			return nil, err
		}
		logger.Error("Resource fetch failed", "error", err.Error())
		return nil, nil
	}
	m.metrics.fetched(d.Name, ResultOK)

	if d.Caching.Enabled {
		if err := m.store(ctx, d, data); err != nil {
			logger.Warn("Cache write failed", "error", err.Error())
		}
	}
	return data, nil
}

// run fetches and transforms d
func (m *ResourceManager) run(ctx context.Context, d *resource.Descriptor) (any, error) {
	f, err := m.fetchers.CreateInstance(d.Fetcher.PluginID, d.Fetcher.Settings)
	if err != nil {
		return nil, classify(err, ErrFetch, d.Name)
	}

	res, err := f.Fetch(ctx)
	if err != nil {
		return nil, classify(err, ErrFetch, d.Name)
	}
	log.Debug("Fetched resource", "resource", d.Name, "plugin", res.PluginID())

	data, err := transformer.Chain(ctx, m.transformers, d.Transformers(), res.Payload())
	if err != nil {
		return nil, classify(err, ErrTransform, d.Name)
	}
	return data, nil
}

func (m *ResourceManager) store(ctx context.Context, d *resource.Descriptor, data any) error {
	expiresAt, err := d.ExpiresAt(m.now())
	if err != nil {
		return classify(err, ErrCache, d.Name)
	}
	tags := m.tags.CacheTags(ctx, d)
	if err := m.cache.Set(ctx, d.CacheKey(), data, expiresAt, tags); err != nil {
		return classify(err, ErrCache, d.Name)
	}
	return nil
}

// Invalidate drops the cached data of the named resources
func (m *ResourceManager) Invalidate(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = resource.CacheKeyPrefix + name
	}
	if err := m.cache.Delete(ctx, keys...); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrCache))
	}
	return nil
}

// InvalidateTags drops cached data attached to any of tags
func (m *ResourceManager) InvalidateTags(ctx context.Context, tags ...string) error {
	if err := m.cache.InvalidateTags(ctx, tags...); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrCache))
	}
	return nil
}

// ClearCache drops all cached data
func (m *ResourceManager) ClearCache(ctx context.Context) error {
	if err := m.cache.Clear(ctx); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrCache))
	}
	return nil
}

// Validate checks d against the registries of m
func (m *ResourceManager) Validate(d *resource.Descriptor) error {
	return resource.Validate(d, m.fetchers, m.transformers)
}
