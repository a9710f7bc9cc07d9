package cli

import (
	"time"

	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/api/entity"
	"github.com/ka2n/dataprovider/api/fetcher"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/ka2n/dataprovider/api/transformer"
	"github.com/ka2n/dataprovider/config"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// options are the persistent flags of the root command
type options struct {
	configPath string
	policy     policyFlag
	noCache    bool
	debug      bool
}

// app is a ResourceManager wired from the configuration
type app struct {
	cfg      *config.Config
	manager  *api.ResourceManager
	registry *prometheus.Registry
	close    func() error
}

// Close releases the cache backend
func (a *app) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

func (o *options) setup() (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.policy.IsSet {
		cfg.ErrorPolicy = string(o.policy.Value)
	}
	policy, err := api.ParseErrorPolicy(cfg.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	repo, err := resource.LoadDir(cfg.ResourcesDir)
	if err != nil {
		return nil, err
	}

	var entities entity.Store
	if cfg.EntitiesFile != "" {
		store, err := entity.LoadFile(cfg.EntitiesFile)
		if err != nil {
			return nil, err
		}
		entities = store
	}

	store, closeStore, err := newStore(cfg.Cache)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := api.NewResourceManager(api.Options{
		Fetchers:     fetcher.NewRegistry(fetcher.Options{BaseURL: cfg.BaseURL}),
		Transformers: transformer.NewRegistry(transformer.Options{}),
		Resources:    repo,
		Cache:        store,
		Tags:         resource.NewTagCollector(entities),
		Policy:       policy,
		Dedupe:       cfg.Dedupe,
		Metrics:      api.NewMetrics(registry),
	})
	m.UseCaches(cfg.UseCaches && !o.noCache)

	log.Debug("Loaded configuration",
		"resources_dir", cfg.ResourcesDir,
		"cache", cfg.Cache.Backend,
		"policy", string(policy),
	)

	return &app{cfg: cfg, manager: m, registry: registry, close: closeStore}, nil
}

// newStore creates the configured cache backend and its closer
func newStore(c config.Cache) (cache.Store, func() error, error) {
	switch c.Backend {
	case config.BackendMemory:
		return cache.NewMemoryStore(10 * time.Minute), nil, nil
	case config.BackendFile:
		store, err := cache.NewFileStore(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, DB: c.RedisDB})
		return cache.NewRedisStore(client, ""), client.Close, nil
	case config.BackendNone, "":
		return cache.Nop{}, nil, nil
	default:
		return nil, nil, failure.New(ErrUnknownBackend,
			failure.Message("Unknown cache backend"),
			failure.Context{"backend": c.Backend},
		)
	}
}
